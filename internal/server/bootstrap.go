package server

import (
	"context"
	"fmt"

	"github.com/roach88/concha/internal/loader"
	"github.com/roach88/concha/internal/store"
	"github.com/roach88/concha/internal/trick"
)

// Restore rebuilds repo from the trick events in st. Deleted ids stay
// reserved. Returns the number of live tricks.
func Restore(ctx context.Context, repo *trick.Repository, st *store.Store) (int, error) {
	err := st.ReplayTricks(ctx, func(id int, doc []byte) error {
		if doc == nil {
			repo.Insert(id, nil)
			return nil
		}
		t, err := trick.Parse(doc)
		if err != nil {
			return err
		}
		repo.Insert(id, t)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("restore tricks: %w", err)
	}
	return repo.Len(), nil
}

// Seed replaces the content of repo with the loaded rule files.
func Seed(repo *trick.Repository, result *loader.LoadResult) int {
	repo.Replace(result.Tricks())
	return repo.Len()
}

// ReloadRules reloads the rules directory into the repository. When any
// file fails to load the repository is left unchanged.
func (s *Server) ReloadRules(dir string) error {
	result, errs := loader.Load(dir, loader.LoadModeCollectAll)
	if len(errs) > 0 {
		for _, err := range errs {
			s.logger.Warn("rule file rejected", "error", err)
		}
		return fmt.Errorf("reload %s: %d errors, keeping %d tricks", dir, len(errs), s.repo.Len())
	}
	s.tricksMu.Lock()
	n := Seed(s.repo, result)
	s.tricksMu.Unlock()
	s.metrics.setTricks(n)
	s.logger.Info("rules reloaded", "dir", dir, "files", result.FileCount, "tricks", n)
	return nil
}
