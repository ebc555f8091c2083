package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/barberbook/internal/api"
	"github.com/julianstephens/barberbook/internal/cli"
)

type ServeCmd struct {
	Addr string `help:"Listen address (default from server.addr)."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	if c.Addr != "" {
		ctx.Config.Server.Addr = c.Addr
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return api.New(ctx).Run(runCtx)
}
