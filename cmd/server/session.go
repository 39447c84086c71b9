package main

import (
	"github.com/google/uuid"
	"github.com/pscheid92/tweetrelay/internal/adapter/twitter"
	"github.com/pscheid92/tweetrelay/internal/app"
	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/stream"
)

func newStreamSession(id uuid.UUID, follows domain.FollowList, connector stream.Connector, renderer domain.Renderer, out domain.OutputSink, maxFrameBytes int, onConnected func()) app.Runner {
	return stream.New(id, follows, stream.Deps{
		Connector: connector,
		Decoder:   twitter.Decoder{},
		Renderer:  renderer,
		Sink:      out,
	}, stream.Options{
		MaxFrameBytes: maxFrameBytes,
		OnConnected:   onConnected,
	})
}
