package main

import "fmt"

// AuthCommand prints a bearer token.
type AuthCommand struct {
	ClearCache bool `name:"clear-cache" help:"Remove the cached token and log in again."`
}

// Run ...
func (cmd *AuthCommand) Run(app *App) error {
	if cmd.ClearCache {
		if err := app.tokens.ClearCache(); err != nil {
			return err
		}
	}

	token, err := app.tokens.Token(app.ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.out, token)
	return err
}
