package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"eppie-mail/go-core/internal/backend"
	"eppie-mail/go-core/internal/bootstrap/mailconfig"
	"eppie-mail/go-core/internal/keystore"
	"eppie-mail/go-core/internal/localstore"
	"eppie-mail/go-core/internal/mailbox"
	"eppie-mail/go-core/internal/platform/privacylog"
	"eppie-mail/go-core/internal/protector"
	"eppie-mail/go-core/internal/pubkey"
	"eppie-mail/go-core/pkg/models"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	dataDir := flag.String("data-dir", ".", "Directory for daemon local data")
	accountIndex := flag.Int("account", 0, "Decentralized account index to serve")
	pollInterval := flag.Duration("poll-interval", 30*time.Second, "Inbox poll interval")
	transport := flag.String("transport", "", "Network transport override: go-waku | memory")
	flag.Parse()
	if *showVersion {
		fmt.Printf("mail-daemon version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *transport != "" {
		_ = os.Setenv("EPPIE_NETWORK_TRANSPORT", *transport)
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stderr, nil)))
	slog.SetDefault(logger)

	passphrase := os.Getenv("EPPIE_KEY_PASSPHRASE")
	if passphrase == "" {
		log.Fatal("mail-daemon requires EPPIE_KEY_PASSPHRASE")
	}

	cfg, storeCfg := mailconfig.LoadFromPath(*configPath)
	if storeCfg.KeyPath == "" {
		storeCfg.KeyPath = filepath.Join(*dataDir, "keys.sealed")
	}
	if storeCfg.MessagePath == "" {
		storeCfg.MessagePath = filepath.Join(*dataDir, "messages.sealed")
	}

	keyStore, err := keystore.NewFileStore(storeCfg.KeyPath, passphrase)
	if err != nil {
		log.Fatalf("mail-daemon failed to open key store: %v", err)
	}
	if !keyStore.Initialized() {
		log.Fatalf("key store %s is not initialized, run dec-keytool init first", storeCfg.KeyPath)
	}

	msgStore, err := localstore.NewPersistentMessageStore(storeCfg.MessagePath, passphrase)
	if err != nil {
		log.Fatalf("mail-daemon failed to open message store: %v", err)
	}

	clients, err := backend.BuildClients(cfg)
	if err != nil {
		log.Fatalf("mail-daemon failed to build backends: %v", err)
	}

	service := pubkey.NewService(pubkey.NopResolver{}, pubkey.NopResolver{}, pubkey.NopResolver{})
	prot := protector.New(service, keyStore)
	account := models.Account{
		Network:                   models.NetworkEppie,
		DecentralizedAccountIndex: *accountIndex,
	}
	box, err := mailbox.New(account, keyStore, clients, prot, service, msgStore, logger)
	if err != nil {
		log.Fatalf("mail-daemon failed to initialize: %v", err)
	}

	log.Println("mail-daemon starting")
	if err := run(ctx, box, logger, *pollInterval); err != nil && ctx.Err() == nil {
		log.Fatalf("mail-daemon failed: %v", err)
	}
	log.Println("mail-daemon stopped")
}

// run polls the decentralized backends for inbox mail until the
// context is cancelled. Transient poll failures are logged and
// retried on the next tick.
func run(ctx context.Context, box *mailbox.Mailbox, logger *slog.Logger, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	poll := func() {
		msgs, err := box.GetMessages(ctx, models.FolderInbox, 0)
		if err != nil {
			logger.Warn("inbox poll failed", "reason", err.Error())
			return
		}
		logger.Info("inbox poll completed", "messages", len(msgs))
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}
