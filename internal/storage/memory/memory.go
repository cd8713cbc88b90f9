// Package memory is an in-process storage.Storage with the same uniqueness
// and conditional-write semantics as the MongoDB store. Tests run the
// delivery engine and the HTTP layer against it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu            sync.Mutex
	shifts        map[primitive.ObjectID]models.DriverShift
	routes        []models.Route
	logs          []models.RouteUpdateLog
	admins        map[primitive.ObjectID]models.Admin
	labelScans    []models.LabelScan
	registrations []models.Registration
}

var _ storage.Storage = (*Store)(nil)

func New() *Store {
	return &Store{
		shifts: make(map[primitive.ObjectID]models.DriverShift),
		admins: make(map[primitive.ObjectID]models.Admin),
	}
}

func (s *Store) Shift() storage.ShiftRepo               { return shiftRepo{s} }
func (s *Store) Route() storage.RouteRepo               { return routeRepo{s} }
func (s *Store) Admin() storage.AdminRepo               { return adminRepo{s} }
func (s *Store) LabelScan() storage.LabelScanRepo       { return labelScanRepo{s} }
func (s *Store) Registration() storage.RegistrationRepo { return registrationRepo{s} }

// Logs returns a copy of every route update log, oldest first.
func (s *Store) Logs() []models.RouteUpdateLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RouteUpdateLog(nil), s.logs...)
}

// --- shifts ---

type shiftRepo struct{ s *Store }

func (r shiftRepo) Create(_ context.Context, shift *models.DriverShift) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if shift.ID.IsZero() {
		shift.ID = primitive.NewObjectID()
	}
	r.s.shifts[shift.ID] = *shift
	return nil
}

func (r shiftRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.DriverShift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	shift, ok := r.s.shifts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &shift, nil
}

// --- routes ---

type routeRepo struct{ s *Store }

func cloneRoute(rt models.Route) models.Route {
	rt.Images = append([]string(nil), rt.Images...)
	rt.Items = append([]models.RouteItem(nil), rt.Items...)
	if rt.Location != nil {
		loc := *rt.Location
		rt.Location = &loc
	}
	return rt
}

func (r routeRepo) InsertMissing(_ context.Context, routes []models.Route) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inserted := 0
	for _, rt := range routes {
		if r.s.indexOf(rt.DriverShiftID, rt.RouteID) >= 0 {
			continue
		}
		if rt.ID.IsZero() {
			rt.ID = primitive.NewObjectID()
		}
		r.s.routes = append(r.s.routes, cloneRoute(rt))
		inserted++
	}
	return inserted, nil
}

func (s *Store) indexOf(shiftID primitive.ObjectID, routeID string) int {
	for i, rt := range s.routes {
		if rt.DriverShiftID == shiftID && rt.RouteID == routeID {
			return i
		}
	}
	return -1
}

func matches(rt models.Route, f models.RouteQueryFilter) bool {
	if !f.DriverShiftID.IsZero() && rt.DriverShiftID != f.DriverShiftID {
		return false
	}
	if f.DriverCode != "" && rt.DriverCode != f.DriverCode {
		return false
	}
	if f.VehicleCode != "" && rt.VehicleCode != f.VehicleCode {
		return false
	}
	if f.Status != "" && rt.Status != f.Status {
		return false
	}
	if f.CreatedFrom != nil && rt.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !rt.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	return true
}

func (r routeRepo) List(_ context.Context, f models.RouteQueryFilter) ([]models.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Route{}
	for _, rt := range r.s.routes {
		if matches(rt, f) {
			out = append(out, cloneRoute(rt))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Position < out[j].Position
	})

	if f.Offset > 0 {
		if f.Offset >= int64(len(out)) {
			return []models.Route{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < int64(len(out)) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r routeRepo) Count(_ context.Context, f models.RouteQueryFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, rt := range r.s.routes {
		if matches(rt, f) {
			n++
		}
	}
	return n, nil
}

func (r routeRepo) GetByShift(_ context.Context, shiftID primitive.ObjectID, routeID string) (*models.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.indexOf(shiftID, routeID)
	if i < 0 {
		return nil, storage.ErrNotFound
	}
	rt := cloneRoute(r.s.routes[i])
	return &rt, nil
}

func (r routeRepo) GetByObjectID(_ context.Context, id primitive.ObjectID) (*models.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rt := range r.s.routes {
		if rt.ID == id {
			rt = cloneRoute(rt)
			return &rt, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r routeRepo) ApplyTransition(_ context.Context, t storage.Transition) (*models.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, rt := range r.s.routes {
		if rt.ID != t.Route.ID {
			continue
		}
		if rt.Status != t.FromStatus {
			return nil, storage.ErrConflict
		}
		r.s.routes[i] = cloneRoute(*t.Route)
		entry := *t.Log
		if entry.ID.IsZero() {
			entry.ID = primitive.NewObjectID()
		}
		r.s.logs = append(r.s.logs, entry)
		updated := cloneRoute(r.s.routes[i])
		return &updated, nil
	}
	return nil, storage.ErrConflict
}

func (r routeRepo) ListLogs(_ context.Context, routeObjectID primitive.ObjectID) ([]models.RouteUpdateLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.RouteUpdateLog{}
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		if r.s.logs[i].RouteObjectID == routeObjectID {
			out = append(out, r.s.logs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r routeRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rt := range r.s.routes {
		if rt.ID == id {
			r.s.routes = append(r.s.routes[:i], r.s.routes[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// --- admins ---

type adminRepo struct{ s *Store }

func (r adminRepo) Create(_ context.Context, admin *models.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if a.Login == admin.Login {
			return storage.ErrConflict
		}
	}
	if admin.ID.IsZero() {
		admin.ID = primitive.NewObjectID()
	}
	r.s.admins[admin.ID] = *admin
	return nil
}

func (r adminRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (r adminRepo) GetByLogin(_ context.Context, login string) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if a.Login == login {
			return &a, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r adminRepo) List(_ context.Context, offset, limit int64) ([]models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Admin, 0, len(r.s.admins))
	for _, a := range r.s.admins {
		a.Password = ""
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= int64(len(out)) {
		return []models.Admin{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (r adminRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.admins)), nil
}

func (r adminRepo) Update(_ context.Context, admin *models.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[admin.ID]; !ok {
		return storage.ErrNotFound
	}
	for id, a := range r.s.admins {
		if id != admin.ID && a.Login == admin.Login {
			return storage.ErrConflict
		}
	}
	r.s.admins[admin.ID] = *admin
	return nil
}

func (r adminRepo) TouchLastActive(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.admins[id]; ok {
		now := time.Now()
		a.LastActive = &now
		r.s.admins[id] = a
	}
	return nil
}

func (r adminRepo) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[id]; !ok {
		return 0, nil
	}
	delete(r.s.admins, id)
	return 1, nil
}

// --- label scans ---

type labelScanRepo struct{ s *Store }

func (r labelScanRepo) Add(_ context.Context, scan *models.LabelScan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if scan.ID.IsZero() {
		scan.ID = primitive.NewObjectID()
	}
	r.s.labelScans = append(r.s.labelScans, *scan)
	return nil
}

func (r labelScanRepo) SetGeneralDeliveryCode(_ context.Context, shiftID primitive.ObjectID, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, scan := range r.s.labelScans {
		if scan.DriverShiftID == shiftID && scan.GeneralDeliveryCode == "" {
			r.s.labelScans[i].GeneralDeliveryCode = code
		}
	}
	return nil
}

func (r labelScanRepo) FindLabelByGeneralDeliveryCode(_ context.Context, code string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, scan := range r.s.labelScans {
		if scan.GeneralDeliveryCode == code {
			return scan.LabelCode, nil
		}
	}
	return "", storage.ErrNotFound
}

// --- registrations ---

type registrationRepo struct{ s *Store }

func (r registrationRepo) latest(platform string, chatID int64) int {
	for i := len(r.s.registrations) - 1; i >= 0; i-- {
		reg := r.s.registrations[i]
		if reg.Platform == platform && reg.ChatID == chatID {
			return i
		}
	}
	return -1
}

func (r registrationRepo) create(platform string, chatID int64, username string) *models.Registration {
	now := time.Now()
	reg := models.Registration{
		ID:        primitive.NewObjectID(),
		Platform:  platform,
		ChatID:    chatID,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.registrations = append(r.s.registrations, reg)
	return &reg
}

func (r registrationRepo) Latest(_ context.Context, platform string, chatID int64, username string) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if i := r.latest(platform, chatID); i >= 0 {
		reg := r.s.registrations[i]
		reg.Files = append([]string(nil), reg.Files...)
		return &reg, nil
	}
	return r.create(platform, chatID, username), nil
}

func (r registrationRepo) Save(_ context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg.UpdatedAt = time.Now()
	for i := range r.s.registrations {
		if r.s.registrations[i].ID == reg.ID {
			saved := *reg
			saved.Files = append([]string(nil), reg.Files...)
			r.s.registrations[i] = saved
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r registrationRepo) Restart(_ context.Context, platform string, chatID int64, username string) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.latest(platform, chatID)
	if i < 0 || r.s.registrations[i].Completed {
		return r.create(platform, chatID, username), nil
	}
	old := r.s.registrations[i]
	r.s.registrations[i] = models.Registration{
		ID:        old.ID,
		Platform:  platform,
		ChatID:    chatID,
		Username:  username,
		CreatedAt: old.CreatedAt,
		UpdatedAt: time.Now(),
	}
	reg := r.s.registrations[i]
	return &reg, nil
}
