// Package roomql exposes a read-only GraphQL surface over a replica's
// songlist, grounded on the in-process QuerySongList snapshot request
// (§4.10) rather than on direct field access — roomql never touches
// room.RoomState itself.
package roomql

import (
	"context"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/cluso-labs/songlist3pc/pkg/room"
)

// Querier is the one capability roomql needs from a replica: a way to ask
// for a point-in-time songlist snapshot without blocking the room's
// mailbox loop longer than one message handling step.
type Querier interface {
	Send(msg room.Message)
}

// Server wraps a compiled schema against one room.
type Server struct {
	schema graphql.Schema
	room   Querier
	timeout time.Duration
}

// NewServer builds the schema once against room and returns a ready
// Server. room.Message is room.QuerySongList under the hood; Server keeps
// that type out of its own exported surface.
func NewServer(r Querier) (*Server, error) {
	s := &Server{room: r, timeout: 2 * time.Second}

	songType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Song",
		Fields: graphql.Fields{
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"url":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"song": &graphql.Field{
				Type: songType,
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: s.resolveSong,
			},
			"songs": &graphql.Field{
				Type: graphql.NewList(songType),
				Resolve: s.resolveSongs,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return nil, err
	}
	s.schema = schema
	return s, nil
}

func (s *Server) snapshot(ctx context.Context) (map[string]string, error) {
	reply := make(chan map[string]string, 1)
	s.room.Send(room.QuerySongList{Reply: reply})
	select {
	case out := <-reply:
		return out, nil
	case <-time.After(s.timeout):
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type songRow struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) resolveSong(p graphql.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	snap, err := s.snapshot(p.Context)
	if err != nil {
		return nil, err
	}
	url, ok := snap[name]
	if !ok {
		return nil, nil
	}
	return songRow{Name: name, URL: url}, nil
}

func (s *Server) resolveSongs(p graphql.ResolveParams) (any, error) {
	snap, err := s.snapshot(p.Context)
	if err != nil {
		return nil, err
	}
	out := make([]songRow, 0, len(snap))
	for name, url := range snap {
		out = append(out, songRow{Name: name, URL: url})
	}
	return out, nil
}

// Execute runs a GraphQL query string against this server's schema.
func (s *Server) Execute(ctx context.Context, query string) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:        s.schema,
		RequestString: query,
		Context:       ctx,
	})
}
