// Package apiconnect wires the messages in package api to Connect handlers
// and clients. Every handler and client speaks the api.Codec JSON codec.
package apiconnect

import (
	"connectrpc.com/connect"

	"github.com/mmynk/subsplit/pkg/api"
)

func clientOptions(opts []connect.ClientOption) connect.ClientOption {
	all := append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
	return connect.WithClientOptions(all...)
}

func handlerOptions(opts []connect.HandlerOption) connect.HandlerOption {
	all := append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)
	return connect.WithHandlerOptions(all...)
}
