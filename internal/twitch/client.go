// Package twitch is the thin chat-transport wrapper. It owns the IRC
// connection and forwards chat lines to a single message callback; everything
// above it is transport-agnostic.
package twitch

import (
	"fmt"
	"os"
	"strings"
	"sync"

	irc "github.com/gempir/go-twitch-irc/v4"
	"github.com/sirupsen/logrus"
)

// MessageHandler receives every inbound chat line. privileged marks
// moderators and the broadcaster.
type MessageHandler func(channel, username string, privileged bool, text string)

// Client is a restartable Twitch chat connection. Start/Stop are driven by
// config updates: a channel change tears the connection down and dials again.
type Client struct {
	log       *logrus.Logger
	onMessage MessageHandler

	mu      sync.Mutex
	irc     *irc.Client
	channel string
}

// New builds an unconnected client. Credentials come from TWITCH_USERNAME and
// TWITCH_OAUTH at Start time.
func New(log *logrus.Logger, onMessage MessageHandler) *Client {
	return &Client{log: log, onMessage: onMessage}
}

// Start connects to Twitch chat and joins channel. A previous connection, if
// any, is closed first.
func (c *Client) Start(channel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	username := os.Getenv("TWITCH_USERNAME")
	oauth := os.Getenv("TWITCH_OAUTH")
	if username == "" || oauth == "" {
		return fmt.Errorf("TWITCH_USERNAME and TWITCH_OAUTH must be set")
	}

	c.log.Infof("Starting bot on %s...", channel)
	client := irc.NewClient(username, oauth)
	client.OnPrivateMessage(func(msg irc.PrivateMessage) {
		// Ignore the bot's own lines echoed back.
		if strings.EqualFold(msg.User.Name, username) {
			return
		}
		privileged := msg.User.Badges["moderator"] > 0 || msg.User.Badges["broadcaster"] > 0
		c.onMessage(msg.Channel, strings.ToLower(msg.User.Name), privileged, msg.Message)
	})
	client.OnConnect(func() {
		c.log.Info("Bot listening to commands")
	})
	client.Join(channel)

	c.irc = client
	c.channel = channel
	go func() {
		if err := client.Connect(); err != nil && err != irc.ErrClientDisconnected {
			c.log.WithError(err).Error("twitch connection closed")
		}
	}()
	return nil
}

// Stop disconnects from Twitch.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Client) stopLocked() {
	if c.irc == nil {
		return
	}
	c.log.Info("Disconnecting from Twitch...")
	if err := c.irc.Disconnect(); err != nil {
		c.log.WithError(err).Warn("twitch disconnect")
	}
	c.irc = nil
}

// Restart reconnects on a (possibly new) channel.
func (c *Client) Restart(channel string) error {
	return c.Start(channel)
}

// Say sends text to the joined channel. Lines sent while disconnected are
// dropped with a warning.
func (c *Client) Say(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.irc == nil {
		c.log.WithField("text", text).Warn("dropping chat line, not connected")
		return
	}
	c.irc.Say(c.channel, text)
}
