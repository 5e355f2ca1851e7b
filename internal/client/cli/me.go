package cli

import (
	"context"

	"github.com/cinematch/cinematch/pkg/api"
)

func (c *Cli) runMe(ctx context.Context) error {
	var me *api.UserMe

	err := c.authService.WithToken(ctx, func(token string) error {
		var err error
		me, err = c.apiClient.Me(ctx, token)
		return err
	})
	if err != nil {
		return err
	}

	c.io.Println("=== Profile ===")
	c.io.Println()
	c.io.Printf("Name: %s\n", me.Name)
	if me.ProfilePic != nil {
		c.io.Printf("Profile picture: %s\n", *me.ProfilePic)
	}

	return nil
}
