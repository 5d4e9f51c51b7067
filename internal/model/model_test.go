package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNotificationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{KindAssignment, "a__t1__u1"},
		{KindMention, "m__t1__u1"},
		{KindStatus, "s__t1__u1"},
		{KindPriority, "p__t1__u1"},
	}
	for _, tt := range tests {
		if got := NotificationID(tt.kind, "t1", "u1"); got != tt.want {
			t.Errorf("NotificationID(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestCountUnread(t *testing.T) {
	t.Parallel()

	list := []Notification{{Read: true}, {}, {}, {Read: true}}
	if got := CountUnread(list); got != 2 {
		t.Errorf("CountUnread = %d, want 2", got)
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	tests := map[Status]Status{
		"todo":        StatusBacklog,
		"":            StatusBacklog,
		"in_progress": StatusDevelop,
		StatusTesting: StatusTesting,
	}
	for in, want := range tests {
		if got := NormalizeStatus(in); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTaskPatchApply(t *testing.T) {
	t.Parallel()

	status := StatusDone
	locked := true
	task := Task{ID: "t1", Title: "old", Status: StatusBacklog, UpdatedAt: time.Unix(1, 0)}
	patch := TaskPatch{Status: &status, Locked: &locked}

	got := patch.Apply(task)
	if got.Status != StatusDone || !got.Locked || got.Title != "old" {
		t.Errorf("Apply = %+v", got)
	}
	if patch.OnlyStatusOrPriority() {
		t.Errorf("a lock change is more than status or priority")
	}
	if !(TaskPatch{}).Empty() {
		t.Errorf("zero patch should be empty")
	}
}

func TestProjectHasMember(t *testing.T) {
	t.Parallel()

	p := Project{Owner: "o", Members: []string{"o", "m"}}
	if !p.HasMember("m") || !p.HasMember("o") {
		t.Errorf("expected members to be recognized")
	}
	if p.HasMember("x") || p.HasMember("") {
		t.Errorf("unexpected member")
	}
}

func TestUserHandle(t *testing.T) {
	t.Parallel()

	u := User{Email: "Ada.Lovelace@Example.com"}
	if got := u.Handle(); got != "ada.lovelace" {
		t.Errorf("Handle = %q", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Backend.Driver != DriverSQLite || cfg.Notifications.BatchSize != 400 {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
		if !cfg.Backend.GroupQueries {
			t.Errorf("group queries should default to enabled")
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := []byte("backend:\n  driver: mongo\n  group_queries: false\nnotifications:\n  batch_size: 100\n")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Backend.Driver != DriverMongo || cfg.Backend.GroupQueries {
			t.Errorf("backend = %+v", cfg.Backend)
		}
		if cfg.Notifications.BatchSize != 100 {
			t.Errorf("batch size = %d", cfg.Notifications.BatchSize)
		}
		if cfg.Backend.MongoDatabase != "taskboard" {
			t.Errorf("mongo database default lost: %q", cfg.Backend.MongoDatabase)
		}
	})

	t.Run("batch size above ceiling is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("notifications:\n  batch_size: 900\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("save then load round trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.yaml")
		cfg := defaultAppConfig()
		cfg.Server.Addr = ":9999"
		if err := SaveConfig(path, cfg); err != nil {
			t.Fatalf("SaveConfig: %v", err)
		}
		loaded, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if loaded.Server.Addr != ":9999" {
			t.Errorf("addr = %q", loaded.Server.Addr)
		}
	})
}

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	list := []Notification{
		{ID: "pending"},
		{ID: "old", CreatedAt: base},
		{ID: "b", ProjectID: "p1", CreatedAt: base.Add(time.Hour)},
		{ID: "a", ProjectID: "p1", CreatedAt: base.Add(time.Hour)},
		{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
	}
	SortNewestFirst(list)

	want := []string{"new", "a", "b", "old", "pending"}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("position %d = %s, want %s (order %v)", i, list[i].ID, id, list)
		}
	}
}

func TestNotificationSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    Notification
		want string
	}{
		{Notification{Kind: KindAssignment}, "assigned you a task"},
		{Notification{Kind: KindMention}, "mentioned you in a task chat"},
		{Notification{Kind: KindStatus, OldStatus: "develop", NewStatus: "review"}, "moved a task from develop to review"},
		{Notification{Kind: KindPriority, OldPriority: "low", NewPriority: "high"}, "changed task priority from low to high"},
		{Notification{Kind: "other"}, "updated a task"},
	}
	for _, tt := range tests {
		if got := tt.n.Summary(); got != tt.want {
			t.Errorf("Summary(%s) = %q, want %q", tt.n.Kind, got, tt.want)
		}
	}
}
