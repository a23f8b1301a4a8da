package database

import (
	"fmt"
	"math/rand"
)

// Default index and kind names of the school dataset.
const (
	TeacherIndex = "teachers"
	TeacherKind  = "Teacher"
)

// Student is a pupil of a class.
type Student struct {
	Name  string `json:"name" datastore:"name"`
	Score int    `json:"score" datastore:"score"`
}

// Class is a group of students taught by one teacher.
type Class struct {
	Code     string    `json:"code" datastore:"code"`
	Room     string    `json:"room" datastore:"room"`
	Students []Student `json:"students" datastore:"students"`
}

// Teacher is the root document of the school dataset.
type Teacher struct {
	ID        string   `json:"id" datastore:"id"`
	FirstName string   `json:"firstName" datastore:"firstName"`
	LastName  string   `json:"lastName" datastore:"lastName"`
	Subject   string   `json:"subject" datastore:"subject"`
	Favorites []string `json:"favorites" datastore:"favorites"`
	Classes   []Class  `json:"classes" datastore:"classes"`
}

var (
	firstNames = []string{"Alice", "Bao", "Carol", "Dung", "Emma", "Farid", "Giang", "Hana", "Ivan", "Julia"}
	lastNames  = []string{"Nguyen", "Tran", "Smith", "Le", "Pham", "Garcia", "Ito", "Kim", "Muller", "Rossi"}
	subjects   = []string{"Math", "Physics", "Art", "Music", "History", "Biology"}
	favorites  = []string{"chess", "tea", "hiking", "jazz", "poetry", "robots"}
	rooms      = []string{"A1", "A2", "B1", "B2", "C1"}
)

// GenerateSchool builds n teachers deterministically from seed. Some teachers
// have no classes and some classes have no students so the generated
// workbooks exercise empty cascades.
func GenerateSchool(n int, seed int64) []Teacher {
	r := rand.New(rand.NewSource(seed))
	teachers := make([]Teacher, 0, n)

	for i := 1; i <= n; i++ {
		t := Teacher{
			ID:        fmt.Sprintf("T%03d", i),
			FirstName: firstNames[r.Intn(len(firstNames))],
			LastName:  lastNames[r.Intn(len(lastNames))],
			Subject:   subjects[r.Intn(len(subjects))],
			Favorites: pick(r, favorites, r.Intn(3)),
			Classes:   []Class{},
		}

		numClasses := r.Intn(4) // 0..3
		for c := 1; c <= numClasses; c++ {
			class := Class{
				Code:     fmt.Sprintf("%s-%d", t.ID, c),
				Room:     rooms[r.Intn(len(rooms))],
				Students: []Student{},
			}
			numStudents := r.Intn(5) // 0..4
			for s := 1; s <= numStudents; s++ {
				class.Students = append(class.Students, Student{
					Name:  firstNames[r.Intn(len(firstNames))],
					Score: 1 + r.Intn(10),
				})
			}
			t.Classes = append(t.Classes, class)
		}
		teachers = append(teachers, t)
	}
	return teachers
}

func pick(r *rand.Rand, items []string, count int) []string {
	out := make([]string, 0, count)
	for _, i := range r.Perm(len(items))[:count] {
		out = append(out, items[i])
	}
	return out
}
