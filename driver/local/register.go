package local

import "github.com/gobeaver/uploadguard"

func init() {
	uploadguard.RegisterDriver("local", func(cfg *uploadguard.Config) (uploadguard.Store, error) {
		return New(cfg.LocalBasePath)
	})
}
