package files

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"fylr/internal/database"
	"fylr/internal/database/memstore"
	"fylr/internal/models"
	"fylr/internal/storage"
	"fylr/internal/tree"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	objects   map[string]string
	deleted   []string
	failPut   error
	failDel   error
	thumbnail bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{objects: make(map[string]string)}
}

func (p *fakeProvider) Upload(ctx context.Context, req storage.UploadRequest) (*storage.UploadResult, error) {
	if p.failPut != nil {
		return nil, p.failPut
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	objPath := req.Folder + "/" + req.FileName
	p.objects[objPath] = string(data)
	res := &storage.UploadResult{Path: objPath, URL: "https://cdn.test" + objPath}
	if p.thumbnail {
		thumb := res.URL + "?tr=thumb"
		res.ThumbnailURL = &thumb
	}
	return res, nil
}

func (p *fakeProvider) Delete(ctx context.Context, objectPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failDel != nil {
		return p.failDel
	}
	delete(p.objects, objectPath)
	p.deleted = append(p.deleted, objectPath)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (p *recordingPublisher) PublishEvent(ownerID string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][][]byte)
	}
	p.messages[ownerID] = append(p.messages[ownerID], data)
}

func (p *recordingPublisher) eventTypes(ownerID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, m := range p.messages[ownerID] {
		var msg struct {
			EventType string `json:"event_type"`
		}
		_ = json.Unmarshal(m, &msg)
		types = append(types, msg.EventType)
	}
	return types
}

// failingStore injects errors into the Querier handed to transactions.
type failingStore struct {
	*memstore.Store
	failBulk   error
	failCreate error
}

func (f *failingStore) ExecTx(ctx context.Context, fn func(database.Querier) error) error {
	return f.Store.ExecTx(ctx, func(q database.Querier) error {
		return fn(&failingQuerier{Querier: q, store: f})
	})
}

type failingQuerier struct {
	database.Querier
	store *failingStore
}

func (q *failingQuerier) SetTrashBulk(ctx context.Context, ownerID string, ids []string, isTrash bool) (int64, error) {
	if q.store.failBulk != nil {
		return 0, q.store.failBulk
	}
	return q.Querier.SetTrashBulk(ctx, ownerID, ids, isTrash)
}

func (q *failingQuerier) CreateNode(ctx context.Context, arg database.CreateNodeParams) (*models.Node, error) {
	if q.store.failCreate != nil {
		return nil, q.store.failCreate
	}
	return q.Querier.CreateNode(ctx, arg)
}

type fixture struct {
	svc       *Service
	store     *memstore.Store
	provider  *fakeProvider
	publisher *recordingPublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := memstore.New()
	provider := newFakeProvider()
	publisher := &recordingPublisher{}
	return &fixture{
		svc:       NewService(store, provider, publisher, nil, opts...),
		store:     store,
		provider:  provider,
		publisher: publisher,
	}
}

func (f *fixture) folder(t *testing.T, owner, name string, parent *string) *models.Node {
	t.Helper()
	n, err := f.svc.CreateFolder(context.Background(), owner, CreateFolderInput{Name: name, ParentID: parent})
	require.NoError(t, err)
	return n
}

func (f *fixture) file(t *testing.T, owner, name string, parent *string) *models.Node {
	t.Helper()
	n, err := f.svc.Upload(context.Background(), owner, UploadInput{
		ParentID:    parent,
		FileName:    name,
		ContentType: "image/png",
		Size:        4,
		Body:        strings.NewReader("data"),
	})
	require.NoError(t, err)
	return n
}

// stored reads the persisted row, bypassing any read-time projection.
func (f *fixture) stored(t *testing.T, owner, id string) *models.Node {
	t.Helper()
	n, err := f.store.GetNodeByID(context.Background(), id, owner)
	require.NoError(t, err)
	require.NotNil(t, n, "node %s should exist", id)
	return n
}

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	root := f.folder(t, "u1", "  Photos ", nil)
	require.Equal(t, "Photos", root.Name)
	require.True(t, root.IsFolder)
	require.Equal(t, models.FolderType, root.ContentType)
	require.Equal(t, "/fylr/u1/Photos", root.Path)
	require.Zero(t, root.Size)
	require.Nil(t, root.ParentID)

	sub := f.folder(t, "u1", "2024", &root.ID)
	require.Equal(t, root.ID, *sub.ParentID)
	require.Equal(t, "/fylr/u1/folder/"+root.ID+"/2024", sub.Path)

	require.Equal(t, []string{models.EventFolderCreated, models.EventFolderCreated}, f.publisher.eventTypes("u1"))

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "   ", "a/b", strings.Repeat("x", MaxNameLength+1)} {
			_, err := f.svc.CreateFolder(ctx, "u1", CreateFolderInput{Name: name})
			require.ErrorIs(t, err, ErrInvalidName, "name %q", name)
		}
	})

	t.Run("invalid parents", func(t *testing.T) {
		missing := "missing"
		_, err := f.svc.CreateFolder(ctx, "u1", CreateFolderInput{Name: "x", ParentID: &missing})
		require.ErrorIs(t, err, ErrInvalidParent)

		file := f.file(t, "u1", "pic.png", nil)
		_, err = f.svc.CreateFolder(ctx, "u1", CreateFolderInput{Name: "x", ParentID: &file.ID})
		require.ErrorIs(t, err, ErrInvalidParent)

		_, err = f.svc.CreateFolder(ctx, "u2", CreateFolderInput{Name: "x", ParentID: &root.ID})
		require.ErrorIs(t, err, ErrInvalidParent, "another owner's folder is not a valid parent")
	})

	t.Run("missing owner", func(t *testing.T) {
		_, err := f.svc.CreateFolder(ctx, "", CreateFolderInput{Name: "x"})
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithMaxUploadBytes(1024))
	f.provider.thumbnail = true
	dir := f.folder(t, "u1", "Docs", nil)

	file, err := f.svc.Upload(ctx, "u1", UploadInput{
		ParentID:    &dir.ID,
		FileName:    "Report.PDF",
		ContentType: "application/pdf",
		Size:        7,
		Body:        strings.NewReader("%PDF-1."),
	})
	require.NoError(t, err)
	require.Equal(t, "Report.PDF", file.Name)
	require.Equal(t, "application/pdf", file.ContentType)
	require.Equal(t, int64(7), file.Size)
	require.Equal(t, "/fylr/u1/folder/"+dir.ID+"/"+file.ID+".pdf", file.Path)
	require.Equal(t, "https://cdn.test"+file.Path, file.StorageURL)
	require.NotNil(t, file.ThumbnailURL)
	require.Equal(t, "%PDF-1.", f.provider.objects[file.Path])

	t.Run("unsupported type", func(t *testing.T) {
		_, err := f.svc.Upload(ctx, "u1", UploadInput{FileName: "a.txt", ContentType: "text/plain", Body: strings.NewReader("x")})
		require.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := f.svc.Upload(ctx, "u1", UploadInput{FileName: "a.png", ContentType: "image/png", Size: 2048, Body: strings.NewReader("x")})
		require.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("invalid parent is checked before upload", func(t *testing.T) {
		before := len(f.provider.objects)
		missing := "nope"
		_, err := f.svc.Upload(ctx, "u1", UploadInput{ParentID: &missing, FileName: "a.png", ContentType: "image/png", Body: strings.NewReader("x")})
		require.ErrorIs(t, err, ErrInvalidParent)
		require.Len(t, f.provider.objects, before)
	})

	t.Run("storage failure is internal", func(t *testing.T) {
		f.provider.failPut = errors.New("bucket unreachable")
		defer func() { f.provider.failPut = nil }()
		_, err := f.svc.Upload(ctx, "u1", UploadInput{FileName: "a.png", ContentType: "image/png", Body: strings.NewReader("x")})
		require.ErrorIs(t, err, ErrInternal)
	})
}

func TestUpload_RowFailureRemovesObject(t *testing.T) {
	store := &failingStore{Store: memstore.New(), failCreate: errors.New("insert failed")}
	provider := newFakeProvider()
	svc := NewService(store, provider, nil, nil)

	_, err := svc.Upload(context.Background(), "u1", UploadInput{FileName: "a.png", ContentType: "image/png", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrInternal)
	require.Empty(t, provider.objects)
	require.Len(t, provider.deleted, 1)
	require.Empty(t, store.Nodes())
}

func TestRegisterUpload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	file, err := f.svc.RegisterUpload(ctx, "u1", RegisterUploadInput{
		UserID: "u1",
		Upload: RegisteredUpload{URL: "https://ik.imagekit.io/demo/x.png", Size: 10},
	})
	require.NoError(t, err)
	require.Equal(t, "untitled", file.Name)
	require.Equal(t, "/fylr/u1/untitled", file.Path)
	require.Equal(t, "image", file.ContentType)
	require.Nil(t, file.ParentID)
	require.Equal(t, "https://ik.imagekit.io/demo/x.png", file.StorageURL)

	_, err = f.svc.RegisterUpload(ctx, "u1", RegisterUploadInput{UserID: "u2", Upload: RegisteredUpload{URL: "https://x"}})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.RegisterUpload(ctx, "u1", RegisterUploadInput{UserID: "u1"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDescendantIDsOverStore(t *testing.T) {
	f := newFixture(t)
	root := f.folder(t, "u1", "root", nil)
	c1 := f.file(t, "u1", "c1.png", &root.ID)
	c2 := f.folder(t, "u1", "c2", &root.ID)
	g1 := f.file(t, "u1", "g1.png", &c2.ID)
	f.folder(t, "u1", "sibling", nil)

	ids, err := tree.DescendantIDs(context.Background(), f.store, "u1", root.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{c1.ID, c2.ID, g1.ID}, ids)
}

func TestToggleTrash_Cascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.folder(t, "u1", "A", nil)
	b := f.folder(t, "u1", "B", &a.ID)
	x := f.file(t, "u1", "x.png", &b.ID)
	y := f.file(t, "u1", "y.png", &a.ID)
	other := f.folder(t, "u1", "Other", nil)

	updated, err := f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.True(t, updated.IsTrash)
	for _, id := range []string{a.ID, b.ID, x.ID, y.ID} {
		require.True(t, f.stored(t, "u1", id).IsTrash, "node %s should be trashed", id)
	}
	require.False(t, f.stored(t, "u1", other.ID).IsTrash)

	updated, err = f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.False(t, updated.IsTrash)
	for _, id := range []string{a.ID, b.ID, x.ID, y.ID} {
		require.False(t, f.stored(t, "u1", id).IsTrash, "node %s should be restored", id)
	}

	require.Equal(t, []string{models.EventFileTrashed, models.EventFileRestored}, f.publisher.eventTypes("u1")[5:])
}

func TestToggleTrash_RestoreOverridesDescendants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.folder(t, "u1", "A", nil)
	x := f.file(t, "u1", "x.png", &a.ID)

	_, err := f.svc.ToggleTrash(ctx, "u1", x.ID)
	require.NoError(t, err)
	require.True(t, f.stored(t, "u1", x.ID).IsTrash)

	_, err = f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)

	require.False(t, f.stored(t, "u1", x.ID).IsTrash, "last ancestor toggle wins")
}

func TestToggleTrash_FailureLeavesNoPartialCascade(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memstore.New()}
	publisher := &recordingPublisher{}
	svc := NewService(store, newFakeProvider(), publisher, nil)

	a, err := svc.CreateFolder(ctx, "u1", CreateFolderInput{Name: "A"})
	require.NoError(t, err)
	b, err := svc.CreateFolder(ctx, "u1", CreateFolderInput{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)

	store.failBulk = errors.New("connection reset")
	_, err = svc.ToggleTrash(ctx, "u1", a.ID)
	require.ErrorIs(t, err, ErrInternal)
	require.ErrorIs(t, err, store.failBulk)

	for _, id := range []string{a.ID, b.ID} {
		n, err := store.GetNodeByID(ctx, id, "u1")
		require.NoError(t, err)
		require.False(t, n.IsTrash, "node %s must be unchanged after rollback", id)
	}
	require.Equal(t, []string{models.EventFolderCreated, models.EventFolderCreated}, publisher.eventTypes("u1"),
		"no event is published for a rolled back toggle")
}

func TestToggleTrash_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.folder(t, "u1", "A", nil)
	x := f.file(t, "u1", "x.png", &a.ID)

	_, err := f.svc.ToggleTrash(ctx, "u2", a.ID)
	require.ErrorIs(t, err, ErrNotFound)

	ids, err := tree.DescendantIDs(ctx, f.store, "u2", a.ID)
	require.NoError(t, err)
	require.Empty(t, ids)

	require.False(t, f.stored(t, "u1", a.ID).IsTrash)
	require.False(t, f.stored(t, "u1", x.ID).IsTrash)

	_, err = f.svc.ToggleTrash(ctx, "u1", "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ToggleTrash(ctx, "", a.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestToggleTrash_RestorePreservesUnrelatedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.folder(t, "u1", "A", nil)
	x := f.file(t, "u1", "x.png", &a.ID)

	_, err := f.svc.ToggleStar(ctx, "u1", x.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)

	_, err = f.svc.Rename(ctx, "u1", x.ID, RenameInput{Name: "renamed.png"})
	require.NoError(t, err)

	_, err = f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)

	restored := f.stored(t, "u1", x.ID)
	require.False(t, restored.IsTrash)
	require.Equal(t, "renamed.png", restored.Name)
	require.True(t, restored.IsStarred)
	require.Equal(t, x.Path, restored.Path)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.file(t, "u1", "b.png", nil)
	z := f.folder(t, "u1", "z", nil)
	a := f.folder(t, "u1", "a", nil)
	f.folder(t, "u2", "foreign", nil)

	nodes, err := f.svc.List(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.Equal(t, []string{a.ID, z.ID, b.ID}, []string{nodes[0].ID, nodes[1].ID, nodes[2].ID},
		"folders first, then by name")

	empty, err := f.svc.List(ctx, "u1", &a.ID)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	missing := "missing"
	_, err = f.svc.List(ctx, "u1", &missing)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.List(ctx, "u1", &b.ID)
	require.ErrorIs(t, err, ErrInvalidParent)

	_, err = f.svc.List(ctx, "u2", &a.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_ProjectsTrashedAncestorWithoutMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.folder(t, "u1", "A", nil)
	sub := f.folder(t, "u1", "Sub", &a.ID)

	_, err := f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)

	// Created after the ancestor was trashed: its own flag starts false.
	late, err := f.store.CreateNode(ctx, database.CreateNodeParams{
		ID: "late", OwnerID: "u1", ParentID: &a.ID, Name: "late.png", ContentType: "image/png",
	})
	require.NoError(t, err)
	deep, err := f.store.CreateNode(ctx, database.CreateNodeParams{
		ID: "deep", OwnerID: "u1", ParentID: &sub.ID, Name: "deep.png", ContentType: "image/png",
	})
	require.NoError(t, err)

	nodes, err := f.svc.List(ctx, "u1", &a.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		require.True(t, n.IsTrash, "%s is presented as trashed", n.Name)
	}

	nodes, err = f.svc.List(ctx, "u1", &sub.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.True(t, nodes[0].IsTrash)

	require.False(t, f.stored(t, "u1", late.ID).IsTrash)
	require.False(t, f.stored(t, "u1", deep.ID).IsTrash)
}

func TestEmptyTrash(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	f := newFixture(t, WithRegisterer(reg))

	a := f.folder(t, "u1", "A", nil)
	b := f.folder(t, "u1", "B", &a.ID)
	x := f.file(t, "u1", "x.png", &b.ID)
	y := f.file(t, "u1", "y.png", &a.ID)
	z := f.file(t, "u1", "z.png", nil)
	sibling := f.folder(t, "u1", "Sibling", nil)
	kept := f.file(t, "u1", "kept.png", &sibling.ID)
	foreign := f.file(t, "u2", "foreign.png", nil)

	_, err := f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleTrash(ctx, "u1", z.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleTrash(ctx, "u2", foreign.ID)
	require.NoError(t, err)

	trash, err := f.svc.ListTrash(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trash, 5)

	count, err := f.svc.EmptyTrash(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1+3+1), count)

	for _, id := range []string{a.ID, b.ID, x.ID, y.ID, z.ID} {
		n, err := f.store.GetNodeByID(ctx, id, "u1")
		require.NoError(t, err)
		require.Nil(t, n, "node %s should be deleted", id)
	}
	require.NotNil(t, f.stored(t, "u1", sibling.ID))
	require.NotNil(t, f.stored(t, "u1", kept.ID))
	require.NotNil(t, f.stored(t, "u2", foreign.ID), "other owners' trash is untouched")

	require.ElementsMatch(t, []string{x.Path, y.Path, z.Path}, f.provider.deleted)
	require.Equal(t, float64(5), testutil.ToFloat64(f.svc.metrics.deletedNodes))
	require.Equal(t, float64(3), testutil.ToFloat64(f.svc.metrics.cascadedNodes))

	count, err = f.svc.EmptyTrash(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestEmptyTrash_StorageFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.file(t, "u1", "x.png", nil)
	_, err := f.svc.ToggleTrash(ctx, "u1", x.ID)
	require.NoError(t, err)

	f.provider.failDel = errors.New("provider down")
	count, err := f.svc.EmptyTrash(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, float64(1), testutil.ToFloat64(f.svc.metrics.cleanupFailures))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.folder(t, "u1", "A", nil)
	x := f.file(t, "u1", "x.png", &a.ID)

	_, err := f.svc.Delete(ctx, "u2", x.ID)
	require.ErrorIs(t, err, ErrNotFound)

	deleted, err := f.svc.Delete(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, deleted.ID)
	require.NotNil(t, f.stored(t, "u1", x.ID), "children are not deleted with their folder")
	require.Empty(t, f.provider.deleted, "folders have no stored object")

	deleted, err = f.svc.Delete(ctx, "u1", x.ID)
	require.NoError(t, err)
	require.Equal(t, x.ID, deleted.ID)
	require.Equal(t, []string{x.Path}, f.provider.deleted)

	_, err = f.svc.Delete(ctx, "u1", x.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.folder(t, "u1", "A", nil)
	b := f.folder(t, "u1", "B", &a.ID)
	c := f.folder(t, "u1", "C", &b.ID)
	x := f.file(t, "u1", "x.png", nil)
	other := f.folder(t, "u1", "Other", nil)

	moved, err := f.svc.Move(ctx, "u1", x.ID, &c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, *moved.ParentID)

	moved, err = f.svc.Move(ctx, "u1", x.ID, nil)
	require.NoError(t, err)
	require.Nil(t, moved.ParentID)

	_, err = f.svc.Move(ctx, "u1", a.ID, &a.ID)
	require.ErrorIs(t, err, ErrCycle)

	_, err = f.svc.Move(ctx, "u1", a.ID, &c.ID)
	require.ErrorIs(t, err, ErrCycle)

	_, err = f.svc.Move(ctx, "u1", a.ID, &x.ID)
	require.ErrorIs(t, err, ErrInvalidParent)

	_, err = f.svc.Move(ctx, "u2", a.ID, nil)
	require.ErrorIs(t, err, ErrNotFound)

	moved, err = f.svc.Move(ctx, "u1", b.ID, &other.ID)
	require.NoError(t, err)
	require.Equal(t, other.ID, *moved.ParentID)

	ids, err := tree.DescendantIDs(ctx, f.store, "u1", other.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{b.ID, c.ID}, ids)
}

func TestToggleStarAndStarredList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.file(t, "u1", "x.png", nil)
	y := f.file(t, "u1", "y.png", nil)

	starred, err := f.svc.ToggleStar(ctx, "u1", x.ID)
	require.NoError(t, err)
	require.True(t, starred.IsStarred)
	_, err = f.svc.ToggleStar(ctx, "u1", y.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleTrash(ctx, "u1", y.ID)
	require.NoError(t, err)

	list, err := f.svc.ListStarred(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, x.ID, list[0].ID)

	require.True(t, f.stored(t, "u1", y.ID).IsStarred, "trash does not touch the star flag")

	unstarred, err := f.svc.ToggleStar(ctx, "u1", x.ID)
	require.NoError(t, err)
	require.False(t, unstarred.IsStarred)

	_, err = f.svc.ToggleStar(ctx, "u1", "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.file(t, "u1", "x.png", nil)

	renamed, err := f.svc.Rename(ctx, "u1", x.ID, RenameInput{Name: " holiday.png "})
	require.NoError(t, err)
	require.Equal(t, "holiday.png", renamed.Name)
	require.False(t, renamed.UpdatedAt.Before(x.UpdatedAt))

	_, err = f.svc.Rename(ctx, "u1", x.ID, RenameInput{Name: ""})
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = f.svc.Rename(ctx, "u1", "missing", RenameInput{Name: "y"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.folder(t, "u1", "A", nil)
	_, err := f.svc.ToggleTrash(ctx, "u1", a.ID)
	require.NoError(t, err)
	f.folder(t, "u2", "B", nil)

	events, err := f.svc.Events(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, models.EventFolderCreated, events[0].EventType)
	require.Equal(t, models.EventFileTrashed, events[1].EventType)

	var payload trashPayload
	require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	require.Equal(t, a.ID, payload.File.ID)
	require.Empty(t, payload.DescendantIDs)

	later, err := f.svc.Events(ctx, "u1", events[0].ID)
	require.NoError(t, err)
	require.Len(t, later, 1)
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	folderF := f.folder(t, "u1", "F", nil)
	folderG := f.folder(t, "u1", "G", &folderF.ID)
	fileX := f.file(t, "u1", "X.png", &folderG.ID)

	_, err := f.svc.ToggleTrash(ctx, "u1", folderF.ID)
	require.NoError(t, err)

	for _, n := range []*models.Node{folderF, folderG, fileX} {
		stored := f.stored(t, "u1", n.ID)
		effective, err := tree.IsEffectivelyTrashed(ctx, f.store, "u1", &stored.ID)
		require.NoError(t, err)
		require.True(t, effective, "%s should be effectively trashed", n.Name)
	}

	listed, err := f.svc.List(ctx, "u1", &folderG.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	for _, n := range listed {
		require.True(t, n.IsTrash)
	}

	_, err = f.svc.ToggleTrash(ctx, "u1", folderF.ID)
	require.NoError(t, err)
	for _, n := range []*models.Node{folderF, folderG, fileX} {
		require.False(t, f.stored(t, "u1", n.ID).IsTrash, "%s should be restored", n.Name)
	}

	count, err := f.svc.EmptyTrash(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, count)
}
