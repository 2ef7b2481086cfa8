package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cctnotify/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSource struct {
	posts  []domain.Post
	err    error
	calls  int
	window int
}

func (f *fakeSource) RecentPosts(_ context.Context, windowHours int) ([]domain.Post, error) {
	f.calls++
	f.window = windowHours
	return f.posts, f.err
}

type fakeDirectory struct {
	employees []domain.Employee
	err       error
	calls     int
	gotCodes  []string
}

func (f *fakeDirectory) FindByCodes(_ context.Context, codes []string) ([]domain.Employee, error) {
	f.calls++
	f.gotCodes = codes
	return f.employees, f.err
}

type sentMail struct {
	to      string
	subject string
	digest  domain.Digest
}

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, toEmail, subject string, digest domain.Digest) error {
	f.sent = append(f.sent, sentMail{to: toEmail, subject: subject, digest: digest})
	return f.err
}

func newService(src *fakeSource, dir *fakeDirectory, nt *fakeNotifier) *Service {
	return New(src, dir, nt, "Novedades Convenio", discardLogger())
}

func TestRunSingleMatch(t *testing.T) {
	src := &fakeSource{posts: []domain.Post{
		{ID: "1", Title: "T1", Codes: []string{"100/1"}},
	}}
	dir := &fakeDirectory{employees: []domain.Employee{
		{Email: "a@x.com", Name: "Ana", AgreementCode: "100/1"},
	}}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if src.window != 24 {
		t.Errorf("window = %d, want 24", src.window)
	}
	if len(nt.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(nt.sent))
	}
	m := nt.sent[0]
	if m.to != "a@x.com" {
		t.Errorf("to = %q, want a@x.com", m.to)
	}
	if m.subject != "Novedades Convenio 100/1" {
		t.Errorf("subject = %q", m.subject)
	}
	if m.digest.Name != "Ana" || m.digest.AgreementCode != "100/1" {
		t.Errorf("digest header = %+v", m.digest)
	}
	if len(m.digest.Posts) != 1 || m.digest.Posts[0] != (domain.DigestPost{ID: "1", Title: "T1"}) {
		t.Errorf("digest posts = %+v", m.digest.Posts)
	}
}

func TestRunFiltersPerRecipient(t *testing.T) {
	src := &fakeSource{posts: []domain.Post{
		{ID: "1", Title: "first", Codes: []string{"100/1"}},
		{ID: "2", Title: "second", Codes: []string{"200/2"}},
	}}
	dir := &fakeDirectory{employees: []domain.Employee{
		{Email: "b@x.com", Name: "Bea", AgreementCode: "200/2"},
	}}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(nt.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(nt.sent))
	}
	posts := nt.sent[0].digest.Posts
	if len(posts) != 1 || posts[0].ID != "2" {
		t.Errorf("digest posts = %+v, want only post 2", posts)
	}
}

func TestRunNoPostsShortCircuits(t *testing.T) {
	src := &fakeSource{}
	dir := &fakeDirectory{}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dir.calls != 0 {
		t.Errorf("directory called %d times, want 0", dir.calls)
	}
	if len(nt.sent) != 0 {
		t.Errorf("sent %d mails, want 0", len(nt.sent))
	}
}

func TestRunNoCodesShortCircuits(t *testing.T) {
	// The source contract says posts always carry codes; the service must
	// still recompute the union and stop when it comes out empty.
	src := &fakeSource{posts: []domain.Post{{ID: "1", Title: "odd"}}}
	dir := &fakeDirectory{}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dir.calls != 0 {
		t.Errorf("directory called %d times, want 0", dir.calls)
	}
}

func TestRunNoRecipientsShortCircuits(t *testing.T) {
	src := &fakeSource{posts: []domain.Post{
		{ID: "1", Title: "T1", Codes: []string{"100/1"}},
	}}
	dir := &fakeDirectory{}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(nt.sent) != 0 {
		t.Errorf("sent %d mails, want 0", len(nt.sent))
	}
}

func TestRunSkipsEmployeeWithNoRelevantPosts(t *testing.T) {
	src := &fakeSource{posts: []domain.Post{
		{ID: "1", Title: "T1", Codes: []string{"100/1"}},
	}}
	dir := &fakeDirectory{employees: []domain.Employee{
		{Email: "none@x.com", Name: "Nil", AgreementCode: "999/9"},
		{Email: "a@x.com", Name: "Ana", AgreementCode: "100/1"},
	}}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(nt.sent) != 1 || nt.sent[0].to != "a@x.com" {
		t.Fatalf("sent = %+v, want one mail to a@x.com", nt.sent)
	}
}

func TestRunSharedCodeCollectsAllPosts(t *testing.T) {
	src := &fakeSource{posts: []domain.Post{
		{ID: "1", Title: "T1", Codes: []string{"100/1"}},
		{ID: "2", Title: "T2", Codes: []string{"100/1", "300/3"}},
	}}
	dir := &fakeDirectory{employees: []domain.Employee{
		{Email: "a@x.com", Name: "Ana", AgreementCode: "100/1"},
	}}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(nt.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(nt.sent))
	}
	if got := len(nt.sent[0].digest.Posts); got != 2 {
		t.Errorf("digest has %d posts, want 2", got)
	}
}

func TestRunPassesDistinctCodeUnion(t *testing.T) {
	src := &fakeSource{posts: []domain.Post{
		{ID: "1", Codes: []string{"100/1", "200/2"}},
		{ID: "2", Codes: []string{"200/2", "100/1"}},
		{ID: "3", Codes: []string{"300/3"}},
	}}
	dir := &fakeDirectory{}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"100/1", "200/2", "300/3"}
	if len(dir.gotCodes) != len(want) {
		t.Fatalf("codes = %v, want %v", dir.gotCodes, want)
	}
	for i, c := range want {
		if dir.gotCodes[i] != c {
			t.Fatalf("codes = %v, want %v", dir.gotCodes, want)
		}
	}
}

func TestRunPreservesDirectoryOrderAndDuplicates(t *testing.T) {
	// Same person under two codes gets two mails, in directory order.
	src := &fakeSource{posts: []domain.Post{
		{ID: "1", Title: "T1", Codes: []string{"100/1"}},
		{ID: "2", Title: "T2", Codes: []string{"200/2"}},
	}}
	dir := &fakeDirectory{employees: []domain.Employee{
		{Email: "a@x.com", Name: "Ana", AgreementCode: "200/2"},
		{Email: "a@x.com", Name: "Ana", AgreementCode: "100/1"},
	}}
	nt := &fakeNotifier{}

	if err := newService(src, dir, nt).Run(context.Background(), 24); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(nt.sent) != 2 {
		t.Fatalf("sent %d mails, want 2", len(nt.sent))
	}
	if nt.sent[0].subject != "Novedades Convenio 200/2" || nt.sent[1].subject != "Novedades Convenio 100/1" {
		t.Errorf("subjects out of order: %q, %q", nt.sent[0].subject, nt.sent[1].subject)
	}
}

func TestRunPropagatesUnexpectedErrors(t *testing.T) {
	boom := errors.New("boom")

	src := &fakeSource{err: boom}
	if err := newService(src, &fakeDirectory{}, &fakeNotifier{}).Run(context.Background(), 24); !errors.Is(err, boom) {
		t.Errorf("fetch error not propagated: %v", err)
	}

	src = &fakeSource{posts: []domain.Post{{ID: "1", Codes: []string{"100/1"}}}}
	dir := &fakeDirectory{err: boom}
	if err := newService(src, dir, &fakeNotifier{}).Run(context.Background(), 24); !errors.Is(err, boom) {
		t.Errorf("directory error not propagated: %v", err)
	}

	dir = &fakeDirectory{employees: []domain.Employee{{Email: "a@x.com", AgreementCode: "100/1"}}}
	nt := &fakeNotifier{err: boom}
	if err := newService(src, dir, nt).Run(context.Background(), 24); !errors.Is(err, boom) {
		t.Errorf("notifier error not propagated: %v", err)
	}
}
