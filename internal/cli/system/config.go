package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/config"
)

// ConfigShowCmd prints the effective configuration after file and
// environment overrides.
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *cli.Context) error {
	if ctx.Config.File != "" {
		fmt.Printf("# loaded from %s\n", ctx.Config.File)
	} else {
		fmt.Println("# no config file, built-in defaults")
	}
	if ctx.Config.Store.DSN != "" {
		fmt.Println("# store.dsn is set (hidden)")
	}
	return config.Encode(os.Stdout, ctx.Config)
}

type ConfigPathCmd struct{}

func (c *ConfigPathCmd) Run(ctx *cli.Context) error {
	path := ctx.Config.File
	if path == "" {
		path = config.Path(ctx.Config.Dir)
	}
	fmt.Println(path)
	return nil
}
