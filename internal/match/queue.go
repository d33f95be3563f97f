package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/henzzito/pugbot/internal/models"
)

// Enqueue adds username to the currently forming match, creating the player
// and the match as needed. Reaching capacity starts the match before Enqueue
// returns. The returned match reflects the roster after the append.
func (o *Orchestrator) Enqueue(ctx context.Context, username string) (*models.Match, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	player, err := o.findOrCreatePlayerLocked(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolve player %s: %w", username, err)
	}
	if o.activeMatchForLocked(username) != nil {
		return nil, ErrAlreadyInMatch
	}

	m, err := o.queueingMatchLocked(ctx)
	if err != nil {
		return nil, err
	}
	capacity := o.opts().TeamSize()
	if len(m.Players) >= capacity {
		return nil, ErrQueueFull
	}

	m.Players = append(m.Players, player)
	if err := o.store.SaveMatchPlayers(ctx, m); err != nil {
		m.RemovePlayer(username)
		return nil, fmt.Errorf("persist queue: %w", err)
	}

	if len(m.Players) == capacity {
		if err := o.startMatchLocked(ctx, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Dequeue removes username from the currently forming match.
func (o *Orchestrator) Dequeue(ctx context.Context, username string) (*models.Match, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.queueing == nil {
		return nil, ErrNoQueue
	}
	m := o.queueing
	idx := -1
	for i, p := range m.Players {
		if p.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotQueued
	}
	removed := m.Players[idx]
	m.Players = append(m.Players[:idx], m.Players[idx+1:]...)
	if err := o.store.SaveMatchPlayers(ctx, m); err != nil {
		// Queue order is the captain tie-break, so the rollback restores the
		// player to their original slot.
		m.Players = append(m.Players[:idx], append([]*models.Player{removed}, m.Players[idx:]...)...)
		return nil, fmt.Errorf("persist queue: %w", err)
	}
	return m, nil
}

// queueingMatchLocked returns the single QUEUEING match, consulting the store
// and finally creating one when none exists.
func (o *Orchestrator) queueingMatchLocked(ctx context.Context) (*models.Match, error) {
	if o.queueing != nil {
		return o.queueing, nil
	}
	m, err := o.store.FindLatestQueueing(ctx)
	if errors.Is(err, ErrNotFound) {
		m, err = o.store.CreateMatch(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve queueing match: %w", err)
	}
	o.queueing = m
	return m, nil
}

// QueueLine formats the current queue for chat, mirroring "n/cap (a / b / c)".
func (o *Orchestrator) QueueLine() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	capacity := o.opts().TeamSize()
	if o.queueing == nil || len(o.queueing.Players) == 0 {
		return fmt.Sprintf("0/%d - No one in queue", capacity)
	}
	names := make([]string, len(o.queueing.Players))
	for i, p := range o.queueing.Players {
		names[i] = p.Username
	}
	return fmt.Sprintf("%d/%d (%s)", len(names), capacity, strings.Join(names, " / "))
}
