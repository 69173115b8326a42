//go:build !real_waku

package backend

// Waku transport is only compiled in with the real_waku build tag.
// The default build keeps the dependency surface small for tests and
// the mock transport.
func newWakuClient(Config) (Client, error) {
	return nil, ErrNotEnabled
}
