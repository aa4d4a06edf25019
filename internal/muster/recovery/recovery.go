// Package recovery rebuilds live sessions from persisted snapshots at startup.
package recovery

import (
	"context"
	"log"

	"github.com/louisbranch/musterpoint/internal/muster/registry"
	"github.com/louisbranch/musterpoint/internal/muster/session"
	"github.com/louisbranch/musterpoint/internal/storage"
)

// recoverableStatuses are the only statuses a snapshot can hold: terminal
// sessions remove their snapshot, and pre-start sessions never persist one.
var recoverableStatuses = []string{"IN_PROGRESS", "FINISHED"}

// RecoverAll loads every recoverable snapshot, rehydrates it, registers it,
// and resumes its timers. A snapshot whose environment cannot be resolved is
// skipped with a warning but never deleted: the environment may come back, and
// the next restart gets another chance.
func RecoverAll(ctx context.Context, store storage.SnapshotStore, resolver session.EnvironmentResolver, reg *registry.Registry, deps session.Deps) (int, error) {
	records, err := store.ListSessionsByStatus(ctx, recoverableStatuses)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, record := range records {
		inst, ok := recoverOne(ctx, record, resolver, reg, deps)
		if !ok {
			continue
		}
		inst.Resume()
		recovered++
	}
	log.Printf("session recovery complete recovered=%d snapshots=%d", recovered, len(records))
	return recovered, nil
}

func recoverOne(ctx context.Context, record storage.SessionRecord, resolver session.EnvironmentResolver, reg *registry.Registry, deps session.Deps) (*session.Instance, bool) {
	scope := session.Scope{
		SectionID:      record.SectionID,
		ActivityID:     record.ActivityID,
		ReactionWindow: record.ReactionWindow,
	}
	env, err := resolver.Resolve(ctx, scope)
	if err != nil {
		log.Printf("skip session recovery session_id=%s reason=environment error=%v", record.ID, err)
		return nil, false
	}

	inst, err := session.Rehydrate(record, env, deps)
	if err != nil {
		log.Printf("skip session recovery session_id=%s reason=rehydrate error=%v", record.ID, err)
		return nil, false
	}
	if err := reg.Register(inst); err != nil {
		log.Printf("skip session recovery session_id=%s reason=register error=%v", record.ID, err)
		return nil, false
	}
	return inst, true
}
