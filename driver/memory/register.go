package memory

import "github.com/gobeaver/uploadguard"

func init() {
	uploadguard.RegisterDriver("memory", func(cfg *uploadguard.Config) (uploadguard.Store, error) {
		return New(), nil
	})
}
