package service

import (
	"context"
	"sort"
	"time"

	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/limiter"
	"github.com/clinisafe/patientvault/internal/model"
	"github.com/clinisafe/patientvault/internal/repository"
)

// fakePatients is an in-memory PatientRepository mirroring the transactional
// semantics of the postgres implementation.
type fakePatients struct {
	byID     map[int64]*model.Patient
	consents map[int64][]model.ConsentEntry
	logs     []model.AuditEntry
	nextID   int64

	listErr  error
	applyErr error
}

var _ repository.PatientRepository = (*fakePatients)(nil)

func newFakePatients() *fakePatients {
	return &fakePatients{
		byID:     map[int64]*model.Patient{},
		consents: map[int64][]model.ConsentEntry{},
		nextID:   1,
	}
}

func (f *fakePatients) Create(_ context.Context, p *model.Patient, consent *model.ConsentEntry, log model.AuditEntry) (int64, error) {
	id := f.nextID
	f.nextID++
	cpy := *p
	cpy.ID = id
	cpy.CreatedAt = time.Now()
	f.byID[id] = &cpy
	if consent != nil {
		c := *consent
		c.PatientID = id
		f.consents[id] = append(f.consents[id], c)
	}
	f.logs = append(f.logs, log)
	return id, nil
}

func (f *fakePatients) Update(_ context.Context, id int64, name, contact, diagnosis string, log model.AuditEntry) error {
	p, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	p.Name, p.Contact, p.Diagnosis = name, contact, diagnosis
	p.IsObscured = false
	p.ObscuredName, p.ObscuredContact = "", ""
	p.CipherName, p.CipherContact, p.CipherDiagnosis = "", "", ""
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakePatients) Delete(_ context.Context, id int64, log model.AuditEntry) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	delete(f.consents, id)
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakePatients) List(_ context.Context) ([]model.Patient, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Patient, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakePatients) ListByObscured(ctx context.Context, obscured bool) ([]model.Patient, error) {
	all, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Patient
	for _, p := range all {
		if p.IsObscured == obscured {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePatients) ApplyObscure(_ context.Context, ups []model.ObscureUpdate, log model.AuditEntry) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	for _, up := range ups {
		p, ok := f.byID[up.ID]
		if !ok || p.IsObscured {
			continue
		}
		p.ObscuredName, p.ObscuredContact = up.ObscuredName, up.ObscuredContact
		p.CipherName, p.CipherContact, p.CipherDiagnosis = up.CipherName, up.CipherContact, up.CipherDiagnosis
		p.IsObscured = true
	}
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakePatients) ApplyRestore(_ context.Context, ups []model.RestoreUpdate, log model.AuditEntry) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	for _, up := range ups {
		p, ok := f.byID[up.ID]
		if !ok || !p.IsObscured {
			continue
		}
		p.Name, p.Contact, p.Diagnosis = up.Name, up.Contact, up.Diagnosis
		p.IsObscured = false
	}
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakePatients) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for id, p := range f.byID {
		if p.RetainUntil.Before(now) {
			delete(f.byID, id)
			delete(f.consents, id)
			f.logs = append(f.logs, model.AuditEntry{
				Username: model.SystemIdentity.Username,
				Role:     model.SystemIdentity.Role,
				Action:   model.ActionRetentionSweep,
			})
			count++
		}
	}
	return count, nil
}

// lastLog returns the most recent audit entry or a zero value.
func (f *fakePatients) lastLog() model.AuditEntry {
	if len(f.logs) == 0 {
		return model.AuditEntry{}
	}
	return f.logs[len(f.logs)-1]
}

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	byName map[string]*model.User
	getErr error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) (int64, error) {
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	if _, exists := f.byName[u.Username]; exists {
		return 0, errs.ErrAlreadyExists
	}
	cpy := *u
	cpy.ID = int64(len(f.byName) + 1)
	f.byName[u.Username] = &cpy
	return cpy.ID, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

// fakeAudit is an in-memory AuditRepository recording appends.
type fakeAudit struct {
	entries   []model.AuditEntry
	appendErr error
}

var _ repository.AuditRepository = (*fakeAudit)(nil)

func (f *fakeAudit) Append(_ context.Context, e model.AuditEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	e.ID = int64(len(f.entries) + 1)
	e.Timestamp = time.Now()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) All(_ context.Context) ([]model.AuditEntry, error) {
	out := make([]model.AuditEntry, len(f.entries))
	for i := range f.entries {
		out[i] = f.entries[len(f.entries)-1-i]
	}
	return out, nil
}

func (f *fakeAudit) Filter(ctx context.Context, roles []model.Role, actions []string, limit int) ([]model.AuditEntry, error) {
	all, _ := f.All(ctx)
	match := func(e model.AuditEntry) bool {
		roleOK := len(roles) == 0
		for _, r := range roles {
			roleOK = roleOK || e.Role == r
		}
		actionOK := len(actions) == 0
		for _, a := range actions {
			actionOK = actionOK || e.Action == a
		}
		return roleOK && actionOK
	}
	var out []model.AuditEntry
	for _, e := range all {
		if match(e) {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAudit) DailyCounts(_ context.Context, days int) ([]model.DailyCount, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	counts := map[string]int64{}
	for _, e := range f.entries {
		if !e.Timestamp.Before(cutoff) {
			counts[e.Timestamp.Format("2006-01-02")]++
		}
	}
	var out []model.DailyCount
	for day, n := range counts {
		out = append(out, model.DailyCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (f *fakeAudit) ActionCounts(_ context.Context, days int) ([]model.ActionCount, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	counts := map[string]int64{}
	for _, e := range f.entries {
		if !e.Timestamp.Before(cutoff) {
			counts[e.Action]++
		}
	}
	var out []model.ActionCount
	for action, n := range counts {
		out = append(out, model.ActionCount{Action: action, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// fakeConsent is an in-memory ConsentRepository.
type fakeConsent struct {
	byPatient map[int64][]model.ConsentEntry
	patients  map[int64]bool // consent flag per existing patient
	logs      []model.AuditEntry
}

var _ repository.ConsentRepository = (*fakeConsent)(nil)

func (f *fakeConsent) Record(_ context.Context, e *model.ConsentEntry, log model.AuditEntry) error {
	if _, ok := f.patients[e.PatientID]; !ok {
		return errs.ErrNotFound
	}
	if f.byPatient == nil {
		f.byPatient = map[int64][]model.ConsentEntry{}
	}
	c := *e
	c.Date = time.Now()
	f.byPatient[e.PatientID] = append([]model.ConsentEntry{c}, f.byPatient[e.PatientID]...)
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeConsent) ForPatient(_ context.Context, patientID int64) ([]model.ConsentEntry, error) {
	return f.byPatient[patientID], nil
}

func (f *fakeConsent) Summary(_ context.Context) (model.ConsentSummary, error) {
	var s model.ConsentSummary
	for _, given := range f.patients {
		s.Total++
		if given {
			s.Given++
		}
	}
	return s, nil
}

// fakeLimiter is a scriptable login limiter.
type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, nil
}
