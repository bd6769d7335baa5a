// Package router connects the gateway to the command registry and the
// lookup pipeline. Slash commands go to the registry, everything else
// is treated as a free-text clause query.
package router

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/command"
	"github.com/verdano/clausemap/internal/gateway"
	"github.com/verdano/clausemap/internal/lookup"
)

// MessageRouter routes inbound messages to commands or lookups.
type MessageRouter struct {
	lookup   *lookup.Service
	gw       *gateway.Gateway
	commands *command.Registry
	logger   *zap.Logger
}

// New creates a new MessageRouter.
func New(svc *lookup.Service, gw *gateway.Gateway,
	commands *command.Registry, logger *zap.Logger) *MessageRouter {
	return &MessageRouter{
		lookup:   svc,
		gw:       gw,
		commands: commands,
		logger:   logger,
	}
}

// Handle routes one inbound message.
// Signature matches gateway.MessageHandler.
func (mr *MessageRouter) Handle(msg *gateway.InboundMessage) {
	ctx := context.Background()
	mr.logger.Info("routing message",
		zap.String("platform", msg.Platform),
		zap.String("channel", msg.ChannelID),
		zap.String("user", msg.UserName),
	)

	if strings.HasPrefix(msg.Content, "/") {
		cc := &command.CommandContext{
			Platform:  msg.Platform,
			ChannelID: msg.ChannelID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
		}
		result, err := mr.commands.Dispatch(ctx, msg.Content, cc)
		if err != nil {
			mr.logger.Error("command dispatch error", zap.Error(err))
			mr.sendReply(ctx, msg, "Command error: "+err.Error(), nil)
			return
		}
		mr.sendReply(ctx, msg, result.Content, result.Data)
		return
	}

	resp := mr.lookup.Lookup(ctx, msg.Platform, msg.UserID, msg.Content, nil)
	mr.sendReply(ctx, msg, command.FormatResults(resp.Results), resp.Results)
}

// sendReply sends a response back to the originating platform channel.
func (mr *MessageRouter) sendReply(ctx context.Context, msg *gateway.InboundMessage, content string, data interface{}) {
	err := mr.gw.Send(ctx, &gateway.OutboundMessage{
		Platform:  msg.Platform,
		ChannelID: msg.ChannelID,
		Content:   content,
		Data:      data,
		ReplyTo:   msg.ReplyTo,
	})
	if err != nil {
		mr.logger.Error("send reply failed",
			zap.String("platform", msg.Platform),
			zap.String("channel", msg.ChannelID),
			zap.Error(err))
	}
}
