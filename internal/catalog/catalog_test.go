package catalog

import (
	"path/filepath"
	"testing"

	"mediacat/internal/mediatypes"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), DefaultFilename))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func insertTestFile(t *testing.T, c *Catalog, dirID int64, name string, size int64) *File {
	t.Helper()
	f := &File{
		DirectoryID: dirID,
		Filename:    name,
		Size:        size,
		Mtime:       1000,
		MediaType:   mediatypes.TypeOf(name),
	}
	if _, err := c.InsertFile(f); err != nil {
		t.Fatalf("InsertFile(%q): %v", name, err)
	}
	return f
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)

	c, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	rootID, err := c.EnsureRootDirectory()
	if err != nil {
		t.Fatalf("EnsureRootDirectory: %v", err)
	}
	c.Close()

	// Reopening must apply schema and migrations without error and keep data.
	c, err = Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer c.Close()

	root, err := c.DirectoryByPath("")
	if err != nil {
		t.Fatal(err)
	}
	if root == nil || root.ID != rootID {
		t.Errorf("root directory not preserved across reopen: %+v", root)
	}
}

func TestDirectoryLifecycle(t *testing.T) {
	c := openTestCatalog(t)

	rootID, err := c.EnsureRootDirectory()
	if err != nil {
		t.Fatal(err)
	}
	// Second call returns the same row.
	again, err := c.EnsureRootDirectory()
	if err != nil {
		t.Fatal(err)
	}
	if again != rootID {
		t.Errorf("EnsureRootDirectory returned %d, want %d", again, rootID)
	}

	mtime := int64(12345)
	id, err := c.InsertDirectory("vacation", &rootID, &mtime)
	if err != nil {
		t.Fatal(err)
	}

	d, err := c.DirectoryByPath("vacation")
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("DirectoryByPath returned nil for existing directory")
	}
	if d.ID != id || d.ParentID == nil || *d.ParentID != rootID {
		t.Errorf("unexpected directory: %+v", d)
	}
	if d.Mtime == nil || *d.Mtime != mtime {
		t.Errorf("mtime = %v, want %d", d.Mtime, mtime)
	}

	rating := 4
	if err := c.SetDirectoryRating(id, &rating); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDirectoryMtime(id, 99999); err != nil {
		t.Fatal(err)
	}
	d, _ = c.DirectoryByID(id)
	if d.Rating == nil || *d.Rating != 4 {
		t.Errorf("rating = %v, want 4", d.Rating)
	}
	if d.Mtime == nil || *d.Mtime != 99999 {
		t.Errorf("mtime = %v, want 99999", d.Mtime)
	}

	if err := c.SetDirectoryRating(id, nil); err != nil {
		t.Fatal(err)
	}
	d, _ = c.DirectoryByID(id)
	if d.Rating != nil {
		t.Errorf("rating should be cleared, got %v", *d.Rating)
	}

	children, err := c.ChildDirectories(rootID)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 || children[0].ID != id {
		t.Errorf("ChildDirectories = %+v, want [vacation]", children)
	}

	if err := c.DeleteDirectory(id); err != nil {
		t.Fatal(err)
	}
	d, err = c.DirectoryByPath("vacation")
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Error("directory still present after delete")
	}
}

func TestDirectoryPathUnique(t *testing.T) {
	c := openTestCatalog(t)

	if _, err := c.InsertDirectory("a", nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.InsertDirectory("a", nil, nil); err == nil {
		t.Error("duplicate directory path should be rejected")
	}
}

func TestFileLifecycle(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	f := insertTestFile(t, c, rootID, "cat.jpg", 2048)

	got, err := c.FileByName(rootID, "cat.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != f.ID {
		t.Fatalf("FileByName = %+v, want id %d", got, f.ID)
	}
	if got.MediaType != mediatypes.TypeImage {
		t.Errorf("media type = %q, want image", got.MediaType)
	}
	if got.Hash != nil || got.PerceptualHash != nil || got.Width != nil {
		t.Errorf("derived fields should start unknown: %+v", got)
	}

	missing, err := c.FileByName(rootID, "nothere.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("FileByName should return nil for a missing file")
	}

	if err := c.SetFileHash(f.ID, "00000000deadbeef"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetFilePerceptualHash(f.ID, 0xffff000000000001); err != nil {
		t.Fatal(err)
	}
	if err := c.SetFileDimensions(f.ID, 640, 480); err != nil {
		t.Fatal(err)
	}

	got, _ = c.FileByName(rootID, "cat.jpg")
	if got.Hash == nil || *got.Hash != "00000000deadbeef" {
		t.Errorf("hash = %v", got.Hash)
	}
	// High-bit perceptual hashes must round-trip through the signed column.
	if got.PerceptualHash == nil || *got.PerceptualHash != 0xffff000000000001 {
		t.Errorf("perceptual hash = %v, want 0xffff000000000001", got.PerceptualHash)
	}
	if got.Width == nil || *got.Width != 640 || got.Height == nil || *got.Height != 480 {
		t.Errorf("dimensions = %v x %v", got.Width, got.Height)
	}
}

func TestUpdateFileContentResetsDerived(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	f := insertTestFile(t, c, rootID, "cat.jpg", 2048)

	c.SetFileHash(f.ID, "00000000deadbeef")
	c.SetFilePerceptualHash(f.ID, 42)
	c.SetFileDimensions(f.ID, 640, 480)

	if err := c.UpdateFileContent(f.ID, 4096, 2000); err != nil {
		t.Fatal(err)
	}

	got, _ := c.FileByName(rootID, "cat.jpg")
	if got.Size != 4096 || got.Mtime != 2000 {
		t.Errorf("size/mtime = %d/%d, want 4096/2000", got.Size, got.Mtime)
	}
	if got.Hash != nil || got.PerceptualHash != nil || got.Width != nil || got.Height != nil {
		t.Errorf("derived fields should be reset after content update: %+v", got)
	}
}

func TestFileUniquePerDirectory(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	dirID, _ := c.InsertDirectory("sub", &rootID, nil)

	insertTestFile(t, c, rootID, "cat.jpg", 1)
	// Same filename in a different directory is fine.
	insertTestFile(t, c, dirID, "cat.jpg", 1)

	dup := &File{DirectoryID: rootID, Filename: "cat.jpg", Size: 1, MediaType: mediatypes.TypeImage}
	if _, err := c.InsertFile(dup); err == nil {
		t.Error("duplicate (directory, filename) should be rejected")
	}
}

func TestTags(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	f := insertTestFile(t, c, rootID, "cat.jpg", 1)

	if err := c.AddFileTag(f.ID, "pets"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddFileTag(f.ID, "pets"); err != nil {
		t.Fatalf("re-adding an existing tag should be a no-op: %v", err)
	}
	if err := c.AddFileTag(f.ID, "animals"); err != nil {
		t.Fatal(err)
	}

	tags, err := c.FileTags(f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0] != "animals" || tags[1] != "pets" {
		t.Errorf("FileTags = %v, want [animals pets]", tags)
	}

	if err := c.RemoveFileTag(f.ID, "pets"); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveFileTag(f.ID, "never-existed"); err != nil {
		t.Fatalf("removing an absent tag should be a no-op: %v", err)
	}
	tags, _ = c.FileTags(f.ID)
	if len(tags) != 1 || tags[0] != "animals" {
		t.Errorf("FileTags after remove = %v", tags)
	}

	// Deleting the file cascades its tag links.
	if err := c.DeleteFile(f.ID); err != nil {
		t.Fatal(err)
	}
	var links int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM file_tags").Scan(&links); err != nil {
		t.Fatal(err)
	}
	if links != 0 {
		t.Errorf("file_tags rows after delete = %d, want 0", links)
	}
}

func TestDirectoryTags(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	dirID, _ := c.InsertDirectory("trips", &rootID, nil)

	if err := c.AddDirectoryTag(dirID, "travel"); err != nil {
		t.Fatal(err)
	}
	tags, err := c.DirectoryTags(dirID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0] != "travel" {
		t.Errorf("DirectoryTags = %v", tags)
	}

	if err := c.DeleteDirectory(dirID); err != nil {
		t.Fatal(err)
	}
	var links int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM directory_tags").Scan(&links); err != nil {
		t.Fatal(err)
	}
	if links != 0 {
		t.Errorf("directory_tags rows after delete = %d, want 0", links)
	}
}

func TestRepairParents(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	aID, _ := c.InsertDirectory("a", &rootID, nil)
	// Deliberately wrong parent: a/b should point at a, not the root.
	bID, _ := c.InsertDirectory("a/b", &rootID, nil)
	// Missing parent: top-level should point at the root.
	cID, _ := c.InsertDirectory("c", nil, nil)

	fixed, err := c.RepairParents()
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 2 {
		t.Errorf("RepairParents fixed %d rows, want 2", fixed)
	}

	b, _ := c.DirectoryByID(bID)
	if b.ParentID == nil || *b.ParentID != aID {
		t.Errorf("a/b parent = %v, want %d", b.ParentID, aID)
	}
	cc, _ := c.DirectoryByID(cID)
	if cc.ParentID == nil || *cc.ParentID != rootID {
		t.Errorf("c parent = %v, want %d", cc.ParentID, rootID)
	}

	// A second run finds nothing to fix.
	fixed, err = c.RepairParents()
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 0 {
		t.Errorf("second RepairParents fixed %d rows, want 0", fixed)
	}
}

func TestNeedsWorkQueries(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	dirID, _ := c.InsertDirectory("sub", &rootID, nil)

	img := insertTestFile(t, c, dirID, "a.jpg", 1)
	vid := insertTestFile(t, c, dirID, "b.mp4", 1)
	doc := insertTestFile(t, c, rootID, "c.txt", 1)

	refs, err := c.FilesNeedingHash()
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 3 {
		t.Fatalf("FilesNeedingHash = %d refs, want 3", len(refs))
	}
	// Root-level files report a bare filename path.
	if refs[0].Path != "c.txt" || refs[1].Path != "sub/a.jpg" || refs[2].Path != "sub/b.mp4" {
		t.Errorf("unexpected paths: %v", refs)
	}

	c.SetFileHash(img.ID, "aa")
	c.SetFileHash(vid.ID, "bb")
	c.SetFileHash(doc.ID, "cc")
	refs, _ = c.FilesNeedingHash()
	if len(refs) != 0 {
		t.Errorf("FilesNeedingHash after hashing = %d refs, want 0", len(refs))
	}

	// Dimension and perceptual passes only consider images.
	refs, _ = c.FilesNeedingDimensions()
	if len(refs) != 1 || refs[0].ID != img.ID {
		t.Errorf("FilesNeedingDimensions = %v, want just the image", refs)
	}
	refs, _ = c.FilesNeedingPerceptualHash()
	if len(refs) != 1 || refs[0].ID != img.ID {
		t.Errorf("FilesNeedingPerceptualHash = %v, want just the image", refs)
	}

	// Orientation: tagged images drop out, squares (no tag) stay in.
	refs, _ = c.FilesNeedingOrientation()
	if len(refs) != 1 || refs[0].ID != img.ID {
		t.Errorf("FilesNeedingOrientation = %v, want just the image", refs)
	}
	c.AddFileTag(img.ID, "landscape")
	refs, _ = c.FilesNeedingOrientation()
	if len(refs) != 0 {
		t.Errorf("FilesNeedingOrientation after tagging = %v, want none", refs)
	}
	// An unrelated tag does not satisfy the pass.
	c.RemoveFileTag(img.ID, "landscape")
	c.AddFileTag(img.ID, "pets")
	refs, _ = c.FilesNeedingOrientation()
	if len(refs) != 1 {
		t.Errorf("FilesNeedingOrientation with unrelated tag = %v, want 1", refs)
	}
}

func TestExactDuplicateGroups(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	dirID, _ := c.InsertDirectory("sub", &rootID, nil)

	a := insertTestFile(t, c, rootID, "a.jpg", 10)
	b := insertTestFile(t, c, dirID, "b.jpg", 10)
	d := insertTestFile(t, c, dirID, "unique.jpg", 10)

	c.SetFileHash(a.ID, "same")
	c.SetFileHash(b.ID, "same")
	c.SetFileHash(d.ID, "different")

	groups, err := c.ExactDuplicateGroups()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	g := groups[0]
	if g.Hash != "same" || len(g.Files) != 2 {
		t.Fatalf("unexpected group: %+v", g)
	}
	if g.Files[0].Path != "a.jpg" || g.Files[1].Path != "sub/b.jpg" {
		t.Errorf("member paths = %v, %v", g.Files[0].Path, g.Files[1].Path)
	}
}

func TestPerceptualEntriesRoundTrip(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	f := insertTestFile(t, c, rootID, "a.jpg", 1)
	c.SetFilePerceptualHash(f.ID, 0x8000000000000000)

	entries, err := c.PerceptualEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Hash != 0x8000000000000000 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestTransactionScope(t *testing.T) {
	c := openTestCatalog(t)
	rootID, _ := c.EnsureRootDirectory()

	if err := c.Commit(); err == nil {
		t.Error("Commit without Begin should fail")
	}
	if err := c.Rollback(); err == nil {
		t.Error("Rollback without Begin should fail")
	}

	if err := c.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(); err == nil {
		t.Error("nested Begin should fail")
	}
	insertTestFile(t, c, rootID, "a.jpg", 1)
	if err := c.Rollback(); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.FileByName(rootID, "a.jpg"); got != nil {
		t.Error("rolled-back insert should not be visible")
	}

	if err := c.Begin(); err != nil {
		t.Fatal(err)
	}
	insertTestFile(t, c, rootID, "b.jpg", 1)
	if err := c.Commit(); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.FileByName(rootID, "b.jpg"); got == nil {
		t.Error("committed insert should be visible")
	}
}

func TestSummarize(t *testing.T) {
	c := openTestCatalog(t)

	rootID, _ := c.EnsureRootDirectory()
	img := insertTestFile(t, c, rootID, "a.jpg", 1)
	insertTestFile(t, c, rootID, "b.mp4", 1)
	c.SetFileHash(img.ID, "aa")
	c.AddFileTag(img.ID, "pets")

	s, err := c.Summarize()
	if err != nil {
		t.Fatal(err)
	}
	if s.Directories != 1 || s.Files != 2 || s.Images != 1 || s.Videos != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.MissingHash != 1 || s.MissingDimensions != 1 || s.MissingPerceptual != 1 {
		t.Errorf("missing counts = %+v", s)
	}
	if s.Tags != 1 {
		t.Errorf("tags = %d, want 1", s.Tags)
	}
}
