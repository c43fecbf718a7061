package notebook_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paperjotco/jot/pkg/blob"
	"github.com/paperjotco/jot/pkg/notebook"
	"github.com/paperjotco/jot/pkg/notes"
	"github.com/paperjotco/jot/pkg/storage"
	"github.com/paperjotco/jot/pkg/storage/inmemory"
)

func TestNotebook(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notebook Suite")
}

var _ = Describe("Service", func() {
	var (
		svc   *notebook.Service
		blobs *blob.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		var err error
		blobs, err = blob.NewStore(filepath.Join(GinkgoT().TempDir(), "uploads"))
		Expect(err).NotTo(HaveOccurred())

		svc = notebook.NewService(inmemory.NewDriver(), blobs,
			notebook.WithMaxUploadBytes(64),
		)
		ctx = context.Background()
	})

	create := func(draft notes.Draft) *notes.Note {
		n, err := svc.Create(ctx, draft)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	Describe("Create", func() {
		It("normalizes tags and starts active and unshared", func() {
			n := create(notes.Draft{Title: "A", Tags: []string{"Ops", " ops", "URGENT"}})
			Expect(n.Tags).To(Equal([]string{"ops", "urgent"}))
			Expect(n.Archived).To(BeFalse())
			Expect(n.ShareToken).To(BeNil())
		})

		It("does not record a history entry", func() {
			n := create(notes.Draft{Title: "A"})
			entries, err := svc.History(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})

	Describe("Update", func() {
		It("returns not found for a missing note", func() {
			_, err := svc.Update(ctx, 999, notes.Draft{Title: "x"})
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("records a pre-image history entry", func() {
			n := create(notes.Draft{Title: "before", Body: "old body", Tags: []string{"ops"}})

			_, err := svc.Update(ctx, n.ID, notes.Draft{Title: "after", Body: "new body"})
			Expect(err).NotTo(HaveOccurred())

			entries, err := svc.History(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(notes.ActionUpdate))
			Expect(entries[0].Title).To(Equal("before"))
			Expect(entries[0].Body).To(Equal("old body"))
			Expect(entries[0].Tags).To(Equal([]string{"ops"}))
		})

		It("leaves the archived flag and share token untouched", func() {
			n := create(notes.Draft{Title: "t"})
			_, err := svc.Archive(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			shared, err := svc.Share(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())

			updated, err := svc.Update(ctx, n.ID, notes.Draft{Title: "t2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Archived).To(BeTrue())
			Expect(updated.ShareToken).To(Equal(shared.ShareToken))
		})
	})

	Describe("Archive and Unarchive", func() {
		It("records one history entry per real transition", func() {
			n := create(notes.Draft{Title: "t"})

			archived, err := svc.Archive(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(archived.Archived).To(BeTrue())

			// Idempotent: no duplicate history entry.
			again, err := svc.Archive(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Archived).To(BeTrue())

			entries, err := svc.History(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(notes.ActionArchive))
			Expect(entries[0].Archived).To(BeFalse(), "snapshot holds the state before archived flips")
		})

		It("does not record history when unarchiving an active note", func() {
			n := create(notes.Draft{Title: "t"})

			active, err := svc.Unarchive(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(active.Archived).To(BeFalse())

			entries, err := svc.History(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("lists history newest first across a full lifecycle", func() {
			n := create(notes.Draft{Title: "v1", Body: "b1"})

			_, err := svc.Update(ctx, n.ID, notes.Draft{Title: "v2", Body: "b2"})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Archive(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Unarchive(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())

			entries, err := svc.History(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Action).To(Equal(notes.ActionUnarchive))
			Expect(entries[1].Action).To(Equal(notes.ActionArchive))
			Expect(entries[2].Action).To(Equal(notes.ActionUpdate))
			Expect(entries[2].Title).To(Equal("v1"), "update snapshot equals the state prior to the update")
		})
	})

	Describe("SoftDelete", func() {
		It("archives rather than destroys", func() {
			n := create(notes.Draft{Title: "t"})

			deleted, err := svc.SoftDelete(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted.Archived).To(BeTrue())

			fetched, err := svc.Get(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Archived).To(BeTrue())
		})
	})

	Describe("Share", func() {
		It("issues a token once and never rotates it", func() {
			n := create(notes.Draft{Title: "t"})

			first, err := svc.Share(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.ShareToken).NotTo(BeNil())
			Expect(*first.ShareToken).To(HaveLen(32))

			second, err := svc.Share(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*second.ShareToken).To(Equal(*first.ShareToken))
		})

		It("resolves the token regardless of archived state", func() {
			n := create(notes.Draft{Title: "t"})
			shared, err := svc.Share(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Archive(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())

			fetched, err := svc.GetByShareToken(ctx, *shared.ShareToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.ID).To(Equal(n.ID))
			Expect(fetched.Archived).To(BeTrue())
		})

		It("returns not found for an unknown token", func() {
			_, err := svc.GetByShareToken(ctx, "nope")
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})

	Describe("List", func() {
		It("filters by normalized tag after the store query", func() {
			n := create(notes.Draft{Title: "A", Tags: []string{"Ops", " ops", "URGENT"}})

			for _, tag := range []string{"urgent", "ops"} {
				result, err := svc.List(ctx, notebook.Query{Tag: tag})
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(HaveLen(1))
				Expect(result[0].ID).To(Equal(n.ID))
			}

			result, err := svc.List(ctx, notebook.Query{Tag: "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeEmpty())
		})

		It("excludes archived notes unless asked", func() {
			n := create(notes.Draft{Title: "hidden"})
			_, err := svc.Archive(ctx, n.ID)
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.List(ctx, notebook.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeEmpty())

			result, err = svc.List(ctx, notebook.Query{IncludeArchived: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
		})

		It("orders pinned first, then newest id first", func() {
			older := create(notes.Draft{Title: "older"})
			pinned := create(notes.Draft{Title: "pinned", Pinned: true})
			newer := create(notes.Draft{Title: "newer"})

			result, err := svc.List(ctx, notebook.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(3))
			Expect(result[0].ID).To(Equal(pinned.ID))
			Expect(result[1].ID).To(Equal(newer.ID))
			Expect(result[2].ID).To(Equal(older.ID))
		})

		It("matches search against title, body, and tags", func() {
			create(notes.Draft{Title: "grocery run"})
			create(notes.Draft{Title: "other", Body: "buy groceries"})
			create(notes.Draft{Title: "third", Tags: []string{"groceries"}})
			create(notes.Draft{Title: "unrelated"})

			result, err := svc.List(ctx, notebook.Query{Search: "grocer"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(3))
		})
	})

	Describe("UploadAttachment", func() {
		It("returns not found for a missing note", func() {
			_, err := svc.UploadAttachment(ctx, 999, "f.txt", "text/plain", strings.NewReader("x"))
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("rejects an empty sanitized filename", func() {
			n := create(notes.Draft{Title: "t"})
			_, err := svc.UploadAttachment(ctx, n.ID, "/", "text/plain", strings.NewReader("x"))
			var invalid notebook.InvalidInputError
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("stores blob and row together on success", func() {
			n := create(notes.Draft{Title: "t"})

			att, err := svc.UploadAttachment(ctx, n.ID, "../sneaky/report.txt", "", strings.NewReader("hello"))
			Expect(err).NotTo(HaveOccurred())
			Expect(att.Filename).To(Equal("report.txt"))
			Expect(att.ContentType).To(Equal("application/octet-stream"))
			Expect(att.SizeBytes).To(Equal(int64(5)))
			Expect(att.StorageName).To(HaveSuffix("-report.txt"))

			data, err := os.ReadFile(blobs.Path(att.StorageName))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("hello"))
		})

		It("accepts a payload of exactly the ceiling", func() {
			n := create(notes.Draft{Title: "t"})
			payload := strings.Repeat("x", 64)

			att, err := svc.UploadAttachment(ctx, n.ID, "exact.bin", "application/octet-stream", strings.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			Expect(att.SizeBytes).To(Equal(int64(64)))
		})

		It("rejects one byte over the ceiling and leaves no partial blob", func() {
			n := create(notes.Draft{Title: "t"})
			payload := strings.Repeat("x", 65)

			_, err := svc.UploadAttachment(ctx, n.ID, "over.bin", "application/octet-stream", strings.NewReader(payload))
			var tooLarge blob.TooLargeError
			Expect(errors.As(err, &tooLarge)).To(BeTrue())

			files, err := os.ReadDir(blobs.Root())
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(BeEmpty())
		})
	})

	Describe("OpenAttachment", func() {
		It("streams the blob with its record", func() {
			n := create(notes.Draft{Title: "t"})
			att, err := svc.UploadAttachment(ctx, n.ID, "f.txt", "text/plain", strings.NewReader("payload"))
			Expect(err).NotTo(HaveOccurred())

			record, reader, err := svc.OpenAttachment(ctx, att.ID)
			Expect(err).NotTo(HaveOccurred())
			defer reader.Close()

			Expect(record.Filename).To(Equal("f.txt"))
			data, err := io.ReadAll(reader)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("payload"))
		})

		It("treats a dangling row as not found", func() {
			n := create(notes.Draft{Title: "t"})
			att, err := svc.UploadAttachment(ctx, n.ID, "f.txt", "text/plain", strings.NewReader("x"))
			Expect(err).NotTo(HaveOccurred())

			Expect(os.Remove(blobs.Path(att.StorageName))).To(Succeed())

			_, _, err = svc.OpenAttachment(ctx, att.ID)
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})

	Describe("DeleteAttachment", func() {
		It("removes blob then row", func() {
			n := create(notes.Draft{Title: "t"})
			att, err := svc.UploadAttachment(ctx, n.ID, "f.txt", "text/plain", strings.NewReader("x"))
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.DeleteAttachment(ctx, att.ID)).To(Succeed())

			_, statErr := os.Stat(blobs.Path(att.StorageName))
			Expect(os.IsNotExist(statErr)).To(BeTrue())

			_, _, err = svc.OpenAttachment(ctx, att.ID)
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("still removes the row when the blob is already gone", func() {
			n := create(notes.Draft{Title: "t"})
			att, err := svc.UploadAttachment(ctx, n.ID, "f.txt", "text/plain", strings.NewReader("x"))
			Expect(err).NotTo(HaveOccurred())

			Expect(os.Remove(blobs.Path(att.StorageName))).To(Succeed())
			Expect(svc.DeleteAttachment(ctx, att.ID)).To(Succeed())
		})
	})

	Describe("Purge", func() {
		It("returns not found for a missing note", func() {
			err := svc.Purge(ctx, 999)
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("removes blobs, history, attachments, and the note", func() {
			n := create(notes.Draft{Title: "t"})
			_, err := svc.Update(ctx, n.ID, notes.Draft{Title: "t2"})
			Expect(err).NotTo(HaveOccurred())
			att, err := svc.UploadAttachment(ctx, n.ID, "f.txt", "text/plain", strings.NewReader("x"))
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Purge(ctx, n.ID)).To(Succeed())

			_, err = svc.Get(ctx, n.ID)
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())

			_, _, err = svc.OpenAttachment(ctx, att.ID)
			Expect(errors.As(err, &notFound)).To(BeTrue())

			files, err := os.ReadDir(blobs.Root())
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(BeEmpty())
		})
	})
})
