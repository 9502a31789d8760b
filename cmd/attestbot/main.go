package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/attestbot/cmd/attestbot/commands"
	"git.home.luguber.info/inful/attestbot/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("attestbot"),
		kong.Description("Attestation orchestration engine: discovers commits and records them as delegated attestations."),
		kong.Vars{"version": version.Version},
	)

	err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	ctx.FatalIfErrorf(err)
}
