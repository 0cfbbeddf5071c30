// Package fizzy is the resource layer of the Fizzy API client: typed
// services for boards, cards, comments and the rest, built on the request
// executor in pkg/client.
//
// Example usage:
//
//	c, err := fizzy.NewClient(client.DefaultConfig(token, "897362094"))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	cards, err := c.Cards.List(ctx, fizzy.CardFilter{Status: fizzy.CardStatusOpen})
package fizzy

import (
	"net/url"
	"strings"

	"github.com/spf13/afero"

	"github.com/Sternrassler/fizzy-go/pkg/client"
)

// Client bundles the resource services around one executor.
type Client struct {
	api *client.Client

	Boards        *BoardsService
	Cards         *CardsService
	Columns       *ColumnsService
	Comments      *CommentsService
	Steps         *StepsService
	Users         *UsersService
	Tags          *TagsService
	Reactions     *ReactionsService
	Notifications *NotificationsService
	Identity      *IdentityService
	Uploads       *UploadsService
}

// NewClient creates a client from cfg.
func NewClient(cfg client.Config) (*Client, error) {
	api, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(api), nil
}

// Wrap builds the services on an existing executor.
func Wrap(api *client.Client) *Client {
	s := service{client: api}
	return &Client{
		api:           api,
		Boards:        &BoardsService{s},
		Cards:         &CardsService{s},
		Columns:       &ColumnsService{s},
		Comments:      &CommentsService{s},
		Steps:         &StepsService{s},
		Users:         &UsersService{s},
		Tags:          &TagsService{s},
		Reactions:     &ReactionsService{s},
		Notifications: &NotificationsService{s},
		Identity:      &IdentityService{s},
		Uploads:       &UploadsService{service: s, Fs: afero.NewOsFs()},
	}
}

// API returns the underlying executor.
func (c *Client) API() *client.Client {
	return c.api
}

// Close releases the executor's resources.
func (c *Client) Close() error {
	return c.api.Close()
}

func slugFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
