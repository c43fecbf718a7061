package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paperjotco/jot/pkg/notes"
	"github.com/paperjotco/jot/pkg/storage"
	"github.com/paperjotco/jot/pkg/storage/sqlite"
)

func TestSQLite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite Storage Suite")
}

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	create := func(n *notes.Note) *notes.Note {
		created, err := driver.CreateNote(ctx, n)
		Expect(err).NotTo(HaveOccurred())
		return created
	}

	Describe("NewDriver", func() {
		It("creates a driver with an in-memory database", func() {
			Expect(driver).NotTo(BeNil())
			Expect(driver.Ping(ctx)).To(Succeed())
		})

		It("creates a driver with a file database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "jot.db")

			d, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("is reopenable after migrations have run once", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "jot.db")

			d, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Close()).To(Succeed())

			d, err = sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Close()).To(Succeed())
		})
	})

	Describe("CreateNote and GetNote", func() {
		It("assigns ids and round-trips fields", func() {
			created := create(&notes.Note{Title: "t", Body: "b", Tags: []string{"Ops", "urgent"}, Pinned: true})
			Expect(created.ID).To(BeNumerically(">", 0))

			fetched, err := driver.GetNote(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Title).To(Equal("t"))
			Expect(fetched.Body).To(Equal("b"))
			Expect(fetched.Tags).To(Equal([]string{"ops", "urgent"}))
			Expect(fetched.Pinned).To(BeTrue())
			Expect(fetched.Archived).To(BeFalse())
			Expect(fetched.ShareToken).To(BeNil())
		})

		It("returns a typed not-found error", func() {
			_, err := driver.GetNote(ctx, 12345)
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Entity).To(Equal("note"))
		})
	})

	Describe("SaveNote", func() {
		It("persists every mutable field including the share token", func() {
			n := create(&notes.Note{Title: "t", Body: "b"})

			token := "deadbeefdeadbeefdeadbeefdeadbeef"
			n.Title = "t2"
			n.Tags = []string{"new"}
			n.Archived = true
			n.ShareToken = &token
			Expect(driver.SaveNote(ctx, n)).To(Succeed())

			fetched, err := driver.GetNote(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Title).To(Equal("t2"))
			Expect(fetched.Tags).To(Equal([]string{"new"}))
			Expect(fetched.Archived).To(BeTrue())
			Expect(fetched.ShareToken).NotTo(BeNil())
			Expect(*fetched.ShareToken).To(Equal(token))
		})

		It("returns not found for a missing note", func() {
			err := driver.SaveNote(ctx, &notes.Note{ID: 999, Title: "x"})
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})

	Describe("GetNoteByShareToken", func() {
		It("resolves a stored token", func() {
			n := create(&notes.Note{Title: "t"})
			token := "cafecafecafecafecafecafecafecafe"
			n.ShareToken = &token
			Expect(driver.SaveNote(ctx, n)).To(Succeed())

			fetched, err := driver.GetNoteByShareToken(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.ID).To(Equal(n.ID))
		})

		It("returns not found for an unknown token", func() {
			_, err := driver.GetNoteByShareToken(ctx, "nope")
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Entity).To(Equal("share"))
		})
	})

	Describe("ListNotes", func() {
		It("orders pinned first then id descending", func() {
			a := create(&notes.Note{Title: "a"})
			b := create(&notes.Note{Title: "b", Pinned: true})
			c := create(&notes.Note{Title: "c"})

			result, err := driver.ListNotes(ctx, storage.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(3))
			Expect(result[0].ID).To(Equal(b.ID))
			Expect(result[1].ID).To(Equal(c.ID))
			Expect(result[2].ID).To(Equal(a.ID))
		})

		It("excludes archived notes unless IncludeArchived", func() {
			n := create(&notes.Note{Title: "hidden"})
			n.Archived = true
			Expect(driver.SaveNote(ctx, n)).To(Succeed())

			result, err := driver.ListNotes(ctx, storage.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeEmpty())

			result, err = driver.ListNotes(ctx, storage.Filter{IncludeArchived: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
		})

		It("matches substrings across title, body, and tags", func() {
			create(&notes.Note{Title: "grocery run"})
			create(&notes.Note{Title: "x", Body: "buy groceries"})
			create(&notes.Note{Title: "y", Tags: []string{"groceries"}})
			create(&notes.Note{Title: "unrelated"})

			result, err := driver.ListNotes(ctx, storage.Filter{Search: "grocer"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(3))
		})

		It("returns an empty slice when nothing matches", func() {
			result, err := driver.ListNotes(ctx, storage.Filter{Search: "zzz"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).NotTo(BeNil())
			Expect(result).To(BeEmpty())
		})
	})

	Describe("SaveNoteRevision", func() {
		It("appends history and saves the note together", func() {
			n := create(&notes.Note{Title: "v1", Body: "b1", Tags: []string{"ops"}})

			entry := notes.Snapshot(n, notes.ActionUpdate, time.Now())
			n.Title = "v2"
			Expect(driver.SaveNoteRevision(ctx, n, entry)).To(Succeed())

			fetched, err := driver.GetNote(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Title).To(Equal("v2"))

			entries, err := driver.ListHistory(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(notes.ActionUpdate))
			Expect(entries[0].Title).To(Equal("v1"))
			Expect(entries[0].Tags).To(Equal([]string{"ops"}))
			Expect(entries[0].CreatedAt.Location()).To(Equal(time.UTC))
		})

		It("rolls back the history entry when the note is missing", func() {
			ghost := &notes.Note{ID: 999, Title: "ghost"}
			entry := notes.Snapshot(ghost, notes.ActionUpdate, time.Now())

			err := driver.SaveNoteRevision(ctx, ghost, entry)
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())

			entries, err := driver.ListHistory(ctx, 999)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("lists history newest id first", func() {
			n := create(&notes.Note{Title: "t"})

			for _, action := range []notes.Action{notes.ActionUpdate, notes.ActionArchive, notes.ActionUnarchive} {
				entry := notes.Snapshot(n, action, time.Now())
				Expect(driver.SaveNoteRevision(ctx, n, entry)).To(Succeed())
			}

			entries, err := driver.ListHistory(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Action).To(Equal(notes.ActionUnarchive))
			Expect(entries[1].Action).To(Equal(notes.ActionArchive))
			Expect(entries[2].Action).To(Equal(notes.ActionUpdate))
		})
	})

	Describe("attachments", func() {
		It("round-trips rows and lists newest first", func() {
			n := create(&notes.Note{Title: "t"})

			first, err := driver.CreateAttachment(ctx, &notes.Attachment{
				NoteID: n.ID, Filename: "a.txt", StorageName: "tok1-a.txt",
				ContentType: "text/plain", SizeBytes: 3,
			})
			Expect(err).NotTo(HaveOccurred())
			second, err := driver.CreateAttachment(ctx, &notes.Attachment{
				NoteID: n.ID, Filename: "b.txt", StorageName: "tok2-b.txt",
				ContentType: "text/plain", SizeBytes: 5,
			})
			Expect(err).NotTo(HaveOccurred())

			fetched, err := driver.GetAttachment(ctx, first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Filename).To(Equal("a.txt"))
			Expect(fetched.SizeBytes).To(Equal(int64(3)))

			list, err := driver.ListAttachments(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal(second.ID))
			Expect(list[1].ID).To(Equal(first.ID))
		})

		It("enforces storage_name uniqueness", func() {
			n := create(&notes.Note{Title: "t"})

			att := &notes.Attachment{
				NoteID: n.ID, Filename: "a.txt", StorageName: "same-name",
				ContentType: "text/plain", SizeBytes: 1,
			}
			_, err := driver.CreateAttachment(ctx, att)
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.CreateAttachment(ctx, att)
			Expect(err).To(HaveOccurred())
		})

		It("deletes a row and reports not found afterwards", func() {
			n := create(&notes.Note{Title: "t"})
			att, err := driver.CreateAttachment(ctx, &notes.Attachment{
				NoteID: n.ID, Filename: "a.txt", StorageName: "tok-a.txt",
				ContentType: "text/plain", SizeBytes: 1,
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.DeleteAttachment(ctx, att.ID)).To(Succeed())

			var notFound storage.NotFoundError
			_, err = driver.GetAttachment(ctx, att.ID)
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(driver.DeleteAttachment(ctx, att.ID)).NotTo(Succeed())
		})
	})

	Describe("PurgeNote", func() {
		It("removes the note with its attachments and history in one pass", func() {
			n := create(&notes.Note{Title: "t"})
			_, err := driver.CreateAttachment(ctx, &notes.Attachment{
				NoteID: n.ID, Filename: "a.txt", StorageName: "tok-a.txt",
				ContentType: "text/plain", SizeBytes: 1,
			})
			Expect(err).NotTo(HaveOccurred())
			entry := notes.Snapshot(n, notes.ActionArchive, time.Now())
			n.Archived = true
			Expect(driver.SaveNoteRevision(ctx, n, entry)).To(Succeed())

			Expect(driver.PurgeNote(ctx, n.ID)).To(Succeed())

			var notFound storage.NotFoundError
			_, err = driver.GetNote(ctx, n.ID)
			Expect(errors.As(err, &notFound)).To(BeTrue())

			list, err := driver.ListAttachments(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())

			entries, err := driver.ListHistory(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("returns not found for a missing note", func() {
			err := driver.PurgeNote(ctx, 999)
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})
})
