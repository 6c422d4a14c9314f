package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/pkg/database"
)

// world is an in-memory registrar used by the service tests. Its tx runner
// restores a snapshot when the unit of work fails.
type world struct {
	seq         int
	students    map[string]models.Student
	sections    map[string]models.Section
	subjects    map[string]models.Subject
	years       map[string]models.SchoolYear
	teachers    map[string]models.Teacher
	assignments map[string]models.TeacherAssignment

	failCreateBatch error
	failSetCurrent  error
	txOps           []string
	locks           []string
}

func newWorld() *world {
	return &world{
		students:    make(map[string]models.Student),
		sections:    make(map[string]models.Section),
		subjects:    make(map[string]models.Subject),
		years:       make(map[string]models.SchoolYear),
		teachers:    make(map[string]models.Teacher),
		assignments: make(map[string]models.TeacherAssignment),
	}
}

func (w *world) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%d", prefix, w.seq)
}

func (w *world) addYear(id, label string, current bool) models.SchoolYear {
	y := models.SchoolYear{ID: id, Year: label, IsCurrent: current}
	w.years[id] = y
	return y
}

func (w *world) addSection(id, strand string, grade int, capacity *int) models.Section {
	s := models.Section{ID: id, Name: id, Strand: strand, GradeLevel: grade, Capacity: capacity, IsActive: true}
	w.sections[id] = s
	return s
}

func (w *world) addSubject(id string, grade int) models.Subject {
	s := models.Subject{ID: id, Name: id, GradeLevel: grade, IsActive: true}
	w.subjects[id] = s
	return s
}

func (w *world) addStudent(s models.Student) models.Student {
	if s.ID == "" {
		s.ID = w.nextID("student")
	}
	if s.Strand == "" {
		s.Strand = "STEM"
	}
	if s.EnrollmentStatus == "" {
		s.EnrollmentStatus = models.EnrollmentStatusPending
	}
	w.students[s.ID] = s
	return s
}

func (w *world) snapshot() *world {
	c := newWorld()
	c.seq = w.seq
	for k, v := range w.students {
		c.students[k] = v
	}
	for k, v := range w.sections {
		c.sections[k] = v
	}
	for k, v := range w.subjects {
		c.subjects[k] = v
	}
	for k, v := range w.years {
		c.years[k] = v
	}
	for k, v := range w.teachers {
		c.teachers[k] = v
	}
	for k, v := range w.assignments {
		c.assignments[k] = v
	}
	return c
}

func (w *world) restore(c *world) {
	w.seq = c.seq
	w.students = c.students
	w.sections = c.sections
	w.subjects = c.subjects
	w.years = c.years
	w.teachers = c.teachers
	w.assignments = c.assignments
}

// Run implements txRunner.
func (w *world) Run(ctx context.Context, operation string, fn database.TxFunc) error {
	w.txOps = append(w.txOps, operation)
	saved := w.snapshot()
	if err := fn(ctx, nil); err != nil {
		w.restore(saved)
		return err
	}
	return nil
}

func (w *world) currentYear() (*models.SchoolYear, error) {
	for _, y := range w.years {
		if y.IsCurrent {
			year := y
			return &year, nil
		}
	}
	return nil, sql.ErrNoRows
}

func sortedStudents(m map[string]models.Student, keep func(models.Student) bool) []models.Student {
	out := []models.Student{}
	for _, s := range m {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type studentFake struct{ w *world }

func (f studentFake) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	list := sortedStudents(f.w.students, func(s models.Student) bool {
		return s.IsArchived == filter.Archived && (filter.SchoolYearID == "" || s.SchoolYearID == filter.SchoolYearID)
	})
	return list, len(list), nil
}

func (f studentFake) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	s, ok := f.w.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f studentFake) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	return f.FindByID(ctx, exec, id)
}

func (f studentFake) ExistsByLRN(ctx context.Context, exec sqlx.ExtContext, lrn, schoolYearID, excludeID string) (bool, error) {
	for _, s := range f.w.students {
		if s.LRN != nil && *s.LRN == lrn && s.SchoolYearID == schoolYearID && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f studentFake) CountEnrolledInSection(ctx context.Context, exec sqlx.ExtContext, sectionID string) (int, error) {
	count := 0
	for _, s := range f.w.students {
		if !s.IsArchived && s.EnrollmentStatus == models.EnrollmentStatusEnrolled && s.SectionID != nil && *s.SectionID == sectionID {
			count++
		}
	}
	return count, nil
}

func (f studentFake) UpdateEnrollment(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if _, ok := f.w.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	f.w.students[student.ID] = *student
	return nil
}

func (f studentFake) UpdateProfile(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	return f.UpdateEnrollment(ctx, exec, student)
}

func (f studentFake) UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	return f.UpdateEnrollment(ctx, exec, student)
}

func (f studentFake) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	student.ID = f.w.nextID("student")
	student.CreatedAt = time.Now().UTC()
	student.UpdatedAt = student.CreatedAt
	f.w.students[student.ID] = *student
	return nil
}

func (f studentFake) CreateBatch(ctx context.Context, exec sqlx.ExtContext, students []models.Student) error {
	for i := range students {
		if err := f.Create(ctx, exec, &students[i]); err != nil {
			return err
		}
	}
	return f.w.failCreateBatch
}

func (f studentFake) SetArchived(ctx context.Context, exec sqlx.ExtContext, id string, reason *models.ArchiveReason) error {
	s, ok := f.w.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.IsArchived = reason != nil
	s.ArchiveReason = reason
	if reason != nil {
		now := time.Now().UTC()
		s.ArchivedAt = &now
	} else {
		s.ArchivedAt = nil
	}
	f.w.students[id] = s
	return nil
}

func (f studentFake) ListCandidates(ctx context.Context, exec sqlx.ExtContext, schoolYearID string, statuses []models.EnrollmentStatus) ([]models.Student, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	wanted := make(map[models.EnrollmentStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	return sortedStudents(f.w.students, func(s models.Student) bool {
		return s.SchoolYearID == schoolYearID && !s.IsArchived && wanted[s.EnrollmentStatus]
	}), nil
}

func (f studentFake) ListActiveBySchoolYear(ctx context.Context, schoolYearID string) ([]models.Student, error) {
	return sortedStudents(f.w.students, func(s models.Student) bool {
		return s.SchoolYearID == schoolYearID && !s.IsArchived
	}), nil
}

type sectionFake struct{ w *world }

func (f sectionFake) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, active models.ActiveFilter) (*models.Section, error) {
	s, ok := f.w.sections[id]
	if !ok || !active.Matches(s) {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

type subjectFake struct{ w *world }

func (f subjectFake) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, active models.ActiveFilter) (*models.Subject, error) {
	s, ok := f.w.subjects[id]
	if !ok || !active.Matches(s) {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

type yearFake struct{ w *world }

func (f yearFake) List(ctx context.Context) ([]models.SchoolYear, error) {
	out := []models.SchoolYear{}
	for _, y := range f.w.years {
		out = append(out, y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (f yearFake) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SchoolYear, error) {
	y, ok := f.w.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &y, nil
}

func (f yearFake) FindCurrent(ctx context.Context, exec sqlx.ExtContext) (*models.SchoolYear, error) {
	return f.w.currentYear()
}

func (f yearFake) ExistsByYear(ctx context.Context, label string) (bool, error) {
	for _, y := range f.w.years {
		if y.Year == label {
			return true, nil
		}
	}
	return false, nil
}

func (f yearFake) Create(ctx context.Context, exec sqlx.ExtContext, year *models.SchoolYear) error {
	year.ID = f.w.nextID("sy")
	f.w.years[year.ID] = *year
	return nil
}

func (f yearFake) SetCurrent(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if f.w.failSetCurrent != nil {
		return f.w.failSetCurrent
	}
	if _, ok := f.w.years[id]; !ok {
		return sql.ErrNoRows
	}
	for key, y := range f.w.years {
		y.IsCurrent = key == id
		f.w.years[key] = y
	}
	return nil
}

type teacherFake struct{ w *world }

func (f teacherFake) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error) {
	t, ok := f.w.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (f teacherFake) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error) {
	f.w.locks = append(f.w.locks, "teacher:"+id)
	return f.FindByID(ctx, exec, id)
}

type assignmentFake struct{ w *world }

func (f assignmentFake) byTeacher(teacherID string) []models.TeacherAssignment {
	out := []models.TeacherAssignment{}
	for _, a := range f.w.assignments {
		if a.TeacherID == teacherID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f assignmentFake) ListByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.TeacherAssignmentDetail, error) {
	out := []models.TeacherAssignmentDetail{}
	for _, a := range f.byTeacher(teacherID) {
		out = append(out, models.TeacherAssignmentDetail{
			TeacherAssignment: a,
			SubjectName:       f.w.subjects[a.SubjectID].Name,
			SectionName:       f.w.sections[a.SectionID].Name,
			GradeLevel:        f.w.sections[a.SectionID].GradeLevel,
		})
	}
	return out, nil
}

func (f assignmentFake) Exists(ctx context.Context, exec sqlx.ExtContext, teacherID, subjectID, sectionID string) (bool, error) {
	for _, a := range f.byTeacher(teacherID) {
		if a.SubjectID == subjectID && a.SectionID == sectionID {
			return true, nil
		}
	}
	return false, nil
}

func (f assignmentFake) DistinctSubjectIDs(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]string, error) {
	set := map[string]struct{}{}
	for _, a := range f.byTeacher(teacherID) {
		set[a.SubjectID] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (f assignmentFake) CountDistinctSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID string) (int, error) {
	ids, err := f.DistinctSubjectIDs(ctx, exec, teacherID)
	return len(ids), err
}

func (f assignmentFake) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error {
	assignment.ID = f.w.nextID("assignment")
	f.w.assignments[assignment.ID] = *assignment
	return nil
}

func (f assignmentFake) Delete(ctx context.Context, exec sqlx.ExtContext, teacherID, assignmentID string) error {
	a, ok := f.w.assignments[assignmentID]
	if !ok || a.TeacherID != teacherID {
		return sql.ErrNoRows
	}
	delete(f.w.assignments, assignmentID)
	return nil
}

func (f assignmentFake) DeleteByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) error {
	for id, a := range f.w.assignments {
		if a.TeacherID == teacherID {
			delete(f.w.assignments, id)
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
