package main

import (
	"os"

	"github.com/pyropy/imgserve/lib/logger"
	"github.com/urfave/cli/v2"
)

var log, _ = logger.New("imgctl")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalw("imgctl", "error", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "imgctl",
		Usage: "inspect and manage an image server cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Value:   "localhost:8001",
				Usage:   "Address of the image server admin rpc endpoint",
				EnvVars: []string{"IMGCTL_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Read variants straight from this store path instead of asking the server",
				EnvVars: []string{"IMGCTL_STORE"},
			},
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8000",
				Usage:   "Base url of the image server",
				EnvVars: []string{"IMGCTL_URL"},
			},
		},
		Commands: []*cli.Command{
			statsCmd,
			evictCmd,
			purgeCmd,
			variantsCmd,
			fetchCmd,
		},
	}
}
