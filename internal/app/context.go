package app

import (
	"context"
	"errors"
	"fmt"

	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/repo"
)

// ResolveBoard picks the active board for a CLI invocation. The override may
// be a board id or name; with no override a workspace holding exactly one
// board uses that. A named board that does not exist yet is created on the
// fly, so `tb task add --board Sport` works against a fresh workspace.
func ResolveBoard(ctx context.Context, e engine.Engine, override, actorID string) (domain.Board, error) {
	if override == "" {
		b, err := e.Repo.SingleBoard(ctx)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Board{}, fmt.Errorf("board not specified; use --board")
			}
			return domain.Board{}, err
		}
		return b, nil
	}
	if b, err := e.Repo.GetBoard(ctx, override); err == nil {
		return b, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Board{}, err
	}
	if b, err := e.Repo.GetBoardByName(ctx, override); err == nil {
		return b, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Board{}, err
	}
	return e.CreateBoard(ctx, override, nil, actorID)
}
