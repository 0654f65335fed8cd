package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchpoint/clienthub/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "clienthub-test.db")
	s, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesSchema(t *testing.T) {
	s := newTestStore(t)

	tables := []string{"projects", "tasks", "task_status_history", "checklist_items", "files", "invoices"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestCreateProject_SlugAndDuplicate(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("Brand Refresh 2026", "Acme Co")
	require.NoError(t, err)
	assert.Equal(t, "brand-refresh-2026", p.Slug)

	_, err = s.CreateProject("Brand Refresh 2026", "Acme Co")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"Brand Refresh", "brand-refresh"},
		{"  Spaced  Out  ", "spaced-out"},
		{"Symbols!@#", "symbols"},
		{"a -- b", "a-b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, GenerateSlug(tt.in))
	}
}

func TestGetProject_NotFound(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetProject("missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSaveTask_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("Site Build", "")
	require.NoError(t, err)

	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	task := &model.Task{
		ProjectID:     p.ID,
		Title:         "Homepage design",
		Status:        model.StatusInProgress,
		IsDeliverable: true,
		DueDate:       &due,
	}
	require.NoError(t, s.SaveTask(task))
	require.NotEmpty(t, task.ID)

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Homepage design", got.Title)
	assert.Equal(t, model.StatusInProgress, got.Status)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
}

func TestStatusHistory_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("Site Build", "")
	require.NoError(t, err)

	task := &model.Task{ProjectID: p.ID, Title: "Logo", Status: model.StatusBlocked, IsDeliverable: true}
	require.NoError(t, s.SaveTask(task))

	base := time.Now().UnixMilli()
	require.NoError(t, s.AppendStatusHistory(task.ID, model.StatusHistoryEntry{
		Status: model.StatusInProgress, Note: "started", CreatedAt: base - 2000,
	}))
	require.NoError(t, s.AppendStatusHistory(task.ID, model.StatusHistoryEntry{
		Status: model.StatusBlocked, Context: model.ContextBillingDeferment, Note: "deferred by PM", CreatedAt: base - 1000,
	}))

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, "deferred by PM", got.StatusHistory[0].Note, "history loads newest first")
	assert.Equal(t, model.ContextBillingDeferment, got.StatusHistory[0].Context)
}

func TestListDeliverables_ExcludesInternalTasks(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("Site Build", "")
	require.NoError(t, err)

	require.NoError(t, s.SaveTask(&model.Task{ProjectID: p.ID, Title: "Client page", Status: model.StatusBacklog, IsDeliverable: true}))
	require.NoError(t, s.SaveTask(&model.Task{ProjectID: p.ID, Title: "Update CI", Status: model.StatusBacklog, IsDeliverable: false}))

	tasks, err := s.ListDeliverables(p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Client page", tasks[0].Title)
}

func TestLoadProjectData(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("Site Build", "")
	require.NoError(t, err)

	require.NoError(t, s.SaveTask(&model.Task{ProjectID: p.ID, Title: "Page", Status: model.StatusClientApproved, IsDeliverable: true}))
	require.NoError(t, s.SaveChecklistItem(&model.ChecklistItem{ProjectID: p.ID, Label: "Final sign-off"}))
	require.NoError(t, s.SaveFile(&model.File{ProjectID: p.ID, Name: "contract.pdf"}))

	data, err := s.LoadProjectData(p.Slug)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Len(t, data.Deliverables, 1)
	assert.Len(t, data.ChecklistItems, 1)
	assert.Len(t, data.Files, 1)
	assert.Equal(t, model.FileApprovalPending, data.Files[0].ApprovalStatus)
}

func TestLoadProjectData_MissingProject(t *testing.T) {
	s := newTestStore(t)
	data, err := s.LoadProjectData("nope")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSetChecklistCompleted(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("Site Build", "")
	require.NoError(t, err)

	item := &model.ChecklistItem{ProjectID: p.ID, Label: "QA pass"}
	require.NoError(t, s.SaveChecklistItem(item))
	require.NoError(t, s.SetChecklistCompleted(item.ID, true))

	items, err := s.ListChecklistItems(p.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Completed)

	assert.Error(t, s.SetChecklistCompleted("missing", true))
}

func TestSetFileApproval(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("Site Build", "")
	require.NoError(t, err)

	f := &model.File{ProjectID: p.ID, Name: "deck.pdf"}
	require.NoError(t, s.SaveFile(f))
	require.NoError(t, s.SetFileApproval(f.ID, model.FileApprovalApproved))

	files, err := s.ListFiles(p.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].Approved())
}

func TestInvoices_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("Site Build", "")
	require.NoError(t, err)

	require.NoError(t, s.SaveInvoice(&model.Invoice{ProjectID: p.ID, Number: "INV-001", AmountCts: 250000}))
	invoices, err := s.ListInvoices(p.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "draft", invoices[0].Status)
	assert.Equal(t, int64(250000), invoices[0].AmountCts)
}
