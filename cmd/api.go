package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/coursex/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the course service and prints the response.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var token string
	if cmd.Bool("auth") {
		if err := r.start(ctx); err != nil {
			return err
		}
		token = r.session.AccessToken()
		if token == "" {
			return fmt.Errorf("%w: run `coursex auth login` first", shared.ErrUnauthenticated)
		}
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path, token)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrService, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
