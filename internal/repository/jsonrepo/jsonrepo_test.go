package jsonrepo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
	"github.com/duongquang05/marathon-portal/internal/repository/repotest"
)

func openTempStores(t *testing.T) *repository.Stores {
	t.Helper()

	stores, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open json store: %v", err)
	}
	t.Cleanup(func() {
		if err := stores.Close(); err != nil {
			t.Fatalf("close stores: %v", err)
		}
	})
	return stores
}

func TestJSONContract(t *testing.T) {
	repotest.Run(t, openTempStores)
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty dir error")
	}
}

func TestOpenCreatesCollectionFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir); err != nil {
		t.Fatalf("open: %v", err)
	}
	for file, key := range collectionKeys {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Fatalf("%s = %s, want key %q", file, data, key)
		}
	}
}

func TestPasswordHashPersistsButStaysOutOfModelJSON(t *testing.T) {
	dir := t.TempDir()
	stores, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	u := model.User{FullName: "Ann", Email: "ann@example.com", PasswordHash: "$2a$hash", Role: model.RoleParticipant}
	if err := stores.Users.Insert(ctx, &u); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// a second handle sees what the first wrote
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Users.FindByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.PasswordHash != "$2a$hash" {
		t.Fatalf("password hash = %q, want %q", got.PasswordHash, "$2a$hash")
	}
}

func TestConcurrentInsertsKeepEveryRecord(t *testing.T) {
	stores := openTempStores(t)
	ctx := context.Background()
	mid, _ := repotest.Seed(t, stores, "seed@example.com")

	const n = 20
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			p := model.Participation{MarathonID: mid, UserID: 100 + uid, EntryNumber: -(100 + uid)}
			if err := stores.Participations.Insert(ctx, p); err != nil {
				t.Errorf("insert %d: %v", uid, err)
			}
		}(int64(i))
	}
	wg.Wait()

	list, err := stores.Participations.List(ctx, repository.ParticipationFilter{MarathonID: mid})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != n {
		t.Fatalf("participations = %d, want %d", len(list), n)
	}
}

func TestCanceledContext(t *testing.T) {
	stores := openTempStores(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stores.Marathons.List(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
