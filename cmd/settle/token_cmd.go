package main

import (
	"time"

	"github.com/alecthomas/kong"

	"github.com/avvvet/chipledger-services/internal/auth"
)

// TokenCmd signs a bearer token both services accept for Owner.
type TokenCmd struct {
	Owner  string        `arg:"" help:"Owner id carried in the owner_id claim"`
	Secret string        `env:"JWT_SECRET_KEY" required:"" help:"Signing secret shared with the services"`
	TTL    time.Duration `name:"ttl" default:"168h" help:"Token lifetime"`
}

func (cmd TokenCmd) Run(ctx *kong.Context) error {
	token, err := auth.IssueToken(auth.New(cmd.Secret), cmd.Owner, cmd.TTL)
	if err != nil {
		return err
	}
	_, err = ctx.Stdout.Write([]byte(token + "\n"))
	return err
}
