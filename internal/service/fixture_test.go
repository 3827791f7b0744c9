package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
)

// school is an in-memory data set shared by the fake repositories below.
type school struct {
	mu             sync.Mutex
	teachers       map[string]models.Teacher
	timetable      *models.Timetable
	periods        []models.Period
	lessons        []models.ScheduledLesson
	duties         []models.BreakSupervisionDuty
	availability   []models.TeacherAvailability
	qualifications map[string][]string
	absences       map[string]*models.Absence
	subs           []models.Substitution
	supSubs        []models.BreakSupervisionSubstitution
	statusHistory  []models.AbsenceStatus
	emailsMarked   []string
	beforeCreate   func()
}

func newSchool() *school {
	return &school{
		teachers:       map[string]models.Teacher{},
		timetable:      &models.Timetable{ID: "tt1", Name: "Current", Status: models.TimetableStatusPublished},
		qualifications: map[string][]string{},
		absences:       map[string]*models.Absence{},
		periods: []models.Period{
			{Number: 1, StartTime: "08:00", EndTime: "08:45"},
			{Number: 2, StartTime: "09:00", EndTime: "10:00"},
			{Number: 3, StartTime: "10:30", EndTime: "11:30"},
			{Number: 4, StartTime: "11:45", EndTime: "12:30"},
			{Number: 5, StartTime: "12:45", EndTime: "13:30"},
		},
	}
}

func strPtr(s string) *string { return &s }

func (s *school) addTeacher(id, name string, dept *string, reserve bool) {
	s.teachers[id] = models.Teacher{ID: id, FullName: name, Email: id + "@school.local", DepartmentID: dept, AvailableForSubstitution: reserve, Active: true}
}

func (s *school) addLesson(id string, day, period int, teacher, subject, label string) {
	s.lessons = append(s.lessons, models.ScheduledLesson{
		ID: id, TimetableID: "tt1", DayOfWeek: day, Period: period,
		TeacherIDs: []string{teacher}, SubjectIDs: []string{subject}, RoomIDs: []string{"R" + id}, Label: label,
	})
}

func (s *school) addAbsence(id, teacher string, date time.Time, start, end *string) *models.Absence {
	a := &models.Absence{ID: id, TeacherID: teacher, Date: date, StartTime: start, EndTime: end, Type: models.AbsenceTypeSick, Status: models.AbsenceStatusConfirmed}
	s.absences[id] = a
	return a
}

func (s *school) status(id string) models.AbsenceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.absences[id].Status
}

type fakeTeachers struct{ s *school }

func (f fakeTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	t, ok := f.s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (f fakeTeachers) ListActive(ctx context.Context) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, t := range f.s.teachers {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

type fakeAbsences struct{ s *school }

func (f fakeAbsences) Create(ctx context.Context, a *models.Absence) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	f.s.absences[a.ID] = &cp
	return nil
}

func (f fakeAbsences) FindByID(ctx context.Context, id string) (*models.Absence, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.absences[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f fakeAbsences) List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Absence
	for _, a := range f.s.absences {
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (f fakeAbsences) ListByDate(ctx context.Context, date time.Time) ([]models.Absence, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Absence
	for _, a := range f.s.absences {
		if a.Date.Equal(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f fakeAbsences) UpdateStatus(ctx context.Context, id string, status models.AbsenceStatus) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.absences[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	f.s.statusHistory = append(f.s.statusHistory, status)
	return nil
}

func (f fakeAbsences) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.absences[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.s.absences, id)
	return nil
}

type fakeTimetables struct{ s *school }

func (f fakeTimetables) FindPublished(ctx context.Context) (*models.Timetable, error) {
	if f.s.timetable == nil {
		return nil, sql.ErrNoRows
	}
	return f.s.timetable, nil
}

func (f fakeTimetables) ListPeriods(ctx context.Context) ([]models.Period, error) {
	return f.s.periods, nil
}

type fakeLessons struct{ s *school }

func (f fakeLessons) FindByID(ctx context.Context, id string) (*models.ScheduledLesson, error) {
	for _, l := range f.s.lessons {
		if l.ID == id {
			l := l
			return &l, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeLessons) ListByTeacherDay(ctx context.Context, timetableID, teacherID string, day int) ([]models.ScheduledLesson, error) {
	var out []models.ScheduledLesson
	for _, l := range f.s.lessons {
		if l.TimetableID == timetableID && l.DayOfWeek == day && l.TaughtBy(teacherID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f fakeLessons) ListBySlot(ctx context.Context, timetableID string, day, period int) ([]models.ScheduledLesson, error) {
	var out []models.ScheduledLesson
	for _, l := range f.s.lessons {
		if l.TimetableID == timetableID && l.DayOfWeek == day && l.Period == period {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeDuties struct{ s *school }

func (f fakeDuties) FindByID(ctx context.Context, id string) (*models.BreakSupervisionDuty, error) {
	for _, d := range f.s.duties {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeDuties) ListByTeacherDay(ctx context.Context, timetableID, teacherID string, day int) ([]models.BreakSupervisionDuty, error) {
	var out []models.BreakSupervisionDuty
	for _, d := range f.s.duties {
		if d.Active && d.TimetableID == timetableID && d.DayOfWeek == day && d.TeacherID != nil && *d.TeacherID == teacherID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f fakeDuties) ListBySlot(ctx context.Context, timetableID string, day, period int) ([]models.BreakSupervisionDuty, error) {
	var out []models.BreakSupervisionDuty
	for _, d := range f.s.duties {
		if d.Active && d.TimetableID == timetableID && d.DayOfWeek == day && d.Period == period {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f fakeDuties) CountActiveByTeacher(ctx context.Context, timetableID string) (map[string]int, error) {
	out := map[string]int{}
	for _, d := range f.s.duties {
		if d.Active && d.TimetableID == timetableID && d.TeacherID != nil {
			out[*d.TeacherID]++
		}
	}
	return out, nil
}

type fakeAvailability struct{ s *school }

func (f fakeAvailability) ListBySlot(ctx context.Context, day, period int) ([]models.TeacherAvailability, error) {
	var out []models.TeacherAvailability
	for _, a := range f.s.availability {
		if a.DayOfWeek == day && a.Period == period {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeAvailability) ListQualifiedTeacherIDs(ctx context.Context, subjectIDs []string) ([]string, error) {
	var out []string
	for _, subject := range subjectIDs {
		out = append(out, f.s.qualifications[subject]...)
	}
	return out, nil
}

type fakeSubstitutions struct{ s *school }

func (f fakeSubstitutions) Create(ctx context.Context, sub *models.Substitution) error {
	if f.s.beforeCreate != nil {
		f.s.beforeCreate()
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.subs {
		if existing.AbsenceID == sub.AbsenceID && existing.ScheduledLessonID == sub.ScheduledLessonID {
			return repository.ErrDuplicate
		}
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	f.s.subs = append(f.s.subs, *sub)
	return nil
}

func (f fakeSubstitutions) FindByID(ctx context.Context, id string) (*models.Substitution, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, sub := range f.s.subs {
		if sub.ID == id {
			sub := sub
			return &sub, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeSubstitutions) FindByAbsenceAndLesson(ctx context.Context, absenceID, lessonID string) (*models.Substitution, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, sub := range f.s.subs {
		if sub.AbsenceID == absenceID && sub.ScheduledLessonID == lessonID {
			sub := sub
			return &sub, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeSubstitutions) ListByAbsence(ctx context.Context, absenceID string) ([]models.Substitution, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Substitution
	for _, sub := range f.s.subs {
		if sub.AbsenceID == absenceID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f fakeSubstitutions) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i, sub := range f.s.subs {
		if sub.ID == id {
			f.s.subs = append(f.s.subs[:i], f.s.subs[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f fakeSubstitutions) CountByTeacherBetween(ctx context.Context, from, to time.Time) (map[string]int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[string]int{}
	for _, sub := range f.s.subs {
		a, ok := f.s.absences[sub.AbsenceID]
		if !ok || sub.SubstituteTeacherID == nil {
			continue
		}
		if !a.Date.Before(from) && a.Date.Before(to) {
			out[*sub.SubstituteTeacherID]++
		}
	}
	return out, nil
}

func (f fakeSubstitutions) ListBusyTeachersAt(ctx context.Context, date time.Time, period int) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []string
	for _, sub := range f.s.subs {
		a, ok := f.s.absences[sub.AbsenceID]
		if !ok || sub.SubstituteTeacherID == nil || !a.Date.Equal(date) {
			continue
		}
		for _, l := range f.s.lessons {
			if l.ID == sub.ScheduledLessonID && l.Period == period {
				out = append(out, *sub.SubstituteTeacherID)
			}
		}
	}
	return out, nil
}

func (f fakeSubstitutions) MarkEmailSent(ctx context.Context, id string, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.emailsMarked = append(f.s.emailsMarked, id)
	return nil
}

type fakeSupervisionSubs struct{ s *school }

func (f fakeSupervisionSubs) Create(ctx context.Context, sub *models.BreakSupervisionSubstitution) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.supSubs {
		if existing.AbsenceID == sub.AbsenceID && existing.BreakSupervisionDutyID == sub.BreakSupervisionDutyID {
			return repository.ErrDuplicate
		}
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	f.s.supSubs = append(f.s.supSubs, *sub)
	return nil
}

func (f fakeSupervisionSubs) FindByID(ctx context.Context, id string) (*models.BreakSupervisionSubstitution, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, sub := range f.s.supSubs {
		if sub.ID == id {
			sub := sub
			return &sub, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeSupervisionSubs) FindByAbsenceAndDuty(ctx context.Context, absenceID, dutyID string) (*models.BreakSupervisionSubstitution, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, sub := range f.s.supSubs {
		if sub.AbsenceID == absenceID && sub.BreakSupervisionDutyID == dutyID {
			sub := sub
			return &sub, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeSupervisionSubs) ListByAbsence(ctx context.Context, absenceID string) ([]models.BreakSupervisionSubstitution, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.BreakSupervisionSubstitution
	for _, sub := range f.s.supSubs {
		if sub.AbsenceID == absenceID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f fakeSupervisionSubs) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i, sub := range f.s.supSubs {
		if sub.ID == id {
			f.s.supSubs = append(f.s.supSubs[:i], f.s.supSubs[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f fakeSupervisionSubs) ListBusyTeachersAt(ctx context.Context, date time.Time, period int) ([]string, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	lessons []string
	duties  []string
}

func (n *recordingNotifier) NotifyLesson(ctx context.Context, sub *models.Substitution, substitute *models.Teacher, lesson *models.ScheduledLesson, absence *models.Absence) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lessons = append(n.lessons, substitute.ID+"@"+lesson.ID)
}

func (n *recordingNotifier) NotifySupervision(ctx context.Context, sub *models.BreakSupervisionSubstitution, substitute *models.Teacher, duty *models.BreakSupervisionDuty, absence *models.Absence) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.duties = append(n.duties, substitute.ID+"@"+duty.ID)
}

// engine wires the coverage services on top of a school.
type engine struct {
	resolver    *AffectedItemResolver
	ranker      *CandidateRanker
	supervision *SupervisionCandidateRanker
	tracker     *CoverageStatusTracker
	coordinator *AssignmentCoordinator
	absences    *AbsenceService
	notifier    *recordingNotifier
}

func newEngine(s *school, lock distributedLock) *engine {
	resolver := NewAffectedItemResolver(fakeAbsences{s}, fakeTimetables{s}, fakeLessons{s}, fakeDuties{s}, fakeSubstitutions{s}, fakeSupervisionSubs{s}, nil)
	deps := RankerDeps{
		Absences:      fakeAbsences{s},
		Calendar:      fakeAbsences{s},
		Teachers:      fakeTeachers{s},
		Timetables:    fakeTimetables{s},
		Lessons:       fakeLessons{s},
		Duties:        fakeDuties{s},
		Availability:  fakeAvailability{s},
		Substitutions: fakeSubstitutions{s},
		Supervisions:  fakeSupervisionSubs{s},
	}
	ranker := NewCandidateRanker(deps)
	tracker := NewCoverageStatusTracker(fakeAbsences{s}, resolver, nil)
	notifier := &recordingNotifier{}
	coordinator := NewAssignmentCoordinator(CoordinatorDeps{
		Absences:      fakeAbsences{s},
		Teachers:      fakeTeachers{s},
		Timetables:    fakeTimetables{s},
		Lessons:       fakeLessons{s},
		Duties:        fakeDuties{s},
		Substitutions: fakeSubstitutions{s},
		Supervisions:  fakeSupervisionSubs{s},
		Resolver:      resolver,
		Ranker:        ranker,
		Tracker:       tracker,
		Notifier:      notifier,
		Lock:          lock,
	}, CoordinatorConfig{DefaultMinScore: 100, PayRate: 30})
	return &engine{
		resolver:    resolver,
		ranker:      ranker,
		supervision: NewSupervisionCandidateRanker(deps),
		tracker:     tracker,
		coordinator: coordinator,
		absences:    NewAbsenceService(fakeAbsences{s}, fakeTeachers{s}, resolver, nil, nil, nil),
		notifier:    notifier,
	}
}

var monday = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

// mondaySchool: T is absent all Monday with lessons at periods 1, 3 and 5 and a yard duty at
// period 3. Only U is qualified for maths, and U teaches at period 3.
func mondaySchool() *school {
	s := newSchool()
	s.addTeacher("T", "Tom Absent", strPtr("sci"), false)
	s.addTeacher("U", "Uma Qualified", nil, false)
	s.addTeacher("V", "Vera Reserve", nil, true)
	s.addTeacher("W", "Walt Colleague", strPtr("sci"), false)

	s.addLesson("l1", 1, 1, "T", "math", "Math 5a")
	s.addLesson("l3", 1, 3, "T", "phys", "Physics 6b")
	s.addLesson("l5", 1, 5, "T", "math", "Math 7c")
	s.addLesson("u3", 1, 3, "U", "math", "Math 9a")
	s.duties = append(s.duties, models.BreakSupervisionDuty{ID: "d3", TimetableID: "tt1", Room: "Hof1", DayOfWeek: 1, Period: 3, TeacherID: strPtr("T"), Active: true})
	s.qualifications["math"] = []string{"U"}

	s.addAbsence("a1", "T", monday, nil, nil)
	return s
}
