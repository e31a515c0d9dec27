// Package content serves the static learning catalog: age-group guides,
// modules and lessons, emergency steps, the "don't do" list, references and the assessment
// question bank.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultQuestionCount is the size of an assessment when the caller does not ask for one.
const DefaultQuestionCount = 10

var (
	ErrNoQuestions     = errors.New("no questions to score")
	ErrUnknownQuestion = errors.New("unknown question")
)

//go:embed catalog.yaml
var catalogYAML []byte

// Section is one page of an age-group guide. Content is markdown.
type Section struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Content     string   `yaml:"content" json:"content"`
	ImageURL    string   `yaml:"image_url" json:"imageUrl,omitempty"`
	VideoURL    string   `yaml:"video_url" json:"videoUrl,omitempty"`
	Warnings    []string `yaml:"warnings" json:"warnings,omitempty"`
	Tips        []string `yaml:"tips" json:"tips,omitempty"`
}

// AgeGroup is a first-aid guide for one age range (bayi, balita, anak).
type AgeGroup struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	AgeRange    string    `yaml:"age_range" json:"ageRange"`
	Description string    `yaml:"description" json:"description"`
	Sections    []Section `yaml:"sections" json:"sections"`
}

// QuizItem is a practice question at the end of a lesson. Like Question, the
// answer stays server-side.
type QuizItem struct {
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correct_answer" json:"-"`
	Explanation   string   `yaml:"explanation" json:"-"`
}

type Lesson struct {
	ID       string     `yaml:"id" json:"id"`
	Title    string     `yaml:"title" json:"title"`
	Duration string     `yaml:"duration" json:"duration"`
	Content  string     `yaml:"content" json:"content"`
	VideoURL string     `yaml:"video_url" json:"videoUrl,omitempty"`
	Quiz     []QuizItem `yaml:"quiz" json:"quiz,omitempty"`
}

type Module struct {
	ID          string   `yaml:"id" json:"id"`
	Order       int      `yaml:"order" json:"order"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Duration    string   `yaml:"duration" json:"duration"`
	Topics      []string `yaml:"topics" json:"topics"`
	Lessons     []Lesson `yaml:"lessons" json:"lessons"`
}

type EmergencyStep struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Action      string `yaml:"action" json:"action"`
	Critical    bool   `yaml:"critical" json:"critical"`
}

type DontDo struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Explanation string `yaml:"explanation" json:"explanation"`
}

type Source struct {
	Name  string `yaml:"name" json:"name"`
	URL   string `yaml:"url" json:"url"`
	Title string `yaml:"title" json:"title"`
}

// Question is a multiple-choice item of the assessment bank.
// CorrectAnswer is the index of the right option.
type Question struct {
	ID            string   `yaml:"id" json:"id"`
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correct_answer" json:"-"`
	Explanation   string   `yaml:"explanation" json:"-"`
	Category      string   `yaml:"category" json:"category"`
}

// Catalog is the parsed content. It is read-only after Load.
type Catalog struct {
	ageGroups      []AgeGroup
	modules        []Module
	emergencySteps []EmergencyStep
	dontDo         []DontDo
	sources        []Source
	questions      []Question
	questionIndex  map[string]int
}

type catalogFile struct {
	AgeGroups      []AgeGroup      `yaml:"age_groups"`
	Modules        []Module        `yaml:"modules"`
	EmergencySteps []EmergencyStep `yaml:"emergency_steps"`
	DontDo         []DontDo        `yaml:"dont_do"`
	Sources        []Source        `yaml:"sources"`
	Questions      []Question      `yaml:"questions"`
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Load(catalogYAML)
})

// Default returns the embedded catalog, parsed once.
func Default() (*Catalog, error) {
	return loadDefault()
}

// Load parses and validates a YAML catalog.
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	groupIDs := map[string]struct{}{}
	for _, group := range file.AgeGroups {
		if group.ID == "" {
			return nil, errors.New("age group without id")
		}
		if _, dup := groupIDs[group.ID]; dup {
			return nil, fmt.Errorf("duplicate age group %q", group.ID)
		}
		groupIDs[group.ID] = struct{}{}
	}

	moduleIDs := map[string]struct{}{}
	orders := map[int]struct{}{}
	for _, module := range file.Modules {
		if module.ID == "" {
			return nil, errors.New("module without id")
		}
		if _, dup := moduleIDs[module.ID]; dup {
			return nil, fmt.Errorf("duplicate module %q", module.ID)
		}
		if _, dup := orders[module.Order]; dup {
			return nil, fmt.Errorf("duplicate module order %d", module.Order)
		}
		moduleIDs[module.ID] = struct{}{}
		orders[module.Order] = struct{}{}
		for _, lesson := range module.Lessons {
			for i, item := range lesson.Quiz {
				if item.CorrectAnswer < 0 || item.CorrectAnswer >= len(item.Options) {
					return nil, fmt.Errorf("lesson %q quiz %d: correct answer %d out of range", lesson.ID, i, item.CorrectAnswer)
				}
			}
		}
	}

	index := make(map[string]int, len(file.Questions))
	for i, question := range file.Questions {
		if _, dup := index[question.ID]; dup {
			return nil, fmt.Errorf("duplicate question %q", question.ID)
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(question.Options) {
			return nil, fmt.Errorf("question %q: correct answer %d out of range", question.ID, question.CorrectAnswer)
		}
		index[question.ID] = i
	}

	return &Catalog{
		ageGroups:      file.AgeGroups,
		modules:        file.Modules,
		emergencySteps: file.EmergencySteps,
		dontDo:         file.DontDo,
		sources:        file.Sources,
		questions:      file.Questions,
		questionIndex:  index,
	}, nil
}

func (c *Catalog) AgeGroups() []AgeGroup {
	return c.ageGroups
}

func (c *Catalog) AgeGroup(id string) (AgeGroup, bool) {
	for _, group := range c.ageGroups {
		if group.ID == id {
			return group, true
		}
	}
	return AgeGroup{}, false
}

func (c *Catalog) Modules() []Module {
	return c.modules
}

func (c *Catalog) Module(id string) (Module, bool) {
	for _, module := range c.modules {
		if module.ID == id {
			return module, true
		}
	}
	return Module{}, false
}

// ModuleByOrder looks a module up by its display order.
func (c *Catalog) ModuleByOrder(order int) (Module, bool) {
	for _, module := range c.modules {
		if module.Order == order {
			return module, true
		}
	}
	return Module{}, false
}

func (c *Catalog) EmergencySteps() []EmergencyStep {
	return c.emergencySteps
}

func (c *Catalog) DontDo() []DontDo {
	return c.dontDo
}

func (c *Catalog) Sources() []Source {
	return c.sources
}

// Questions returns a random subset of the bank. A non-positive count means
// DefaultQuestionCount; larger counts are clamped to the bank size.
func (c *Catalog) Questions(count int, rng *rand.Rand) []Question {
	if count <= 0 {
		count = DefaultQuestionCount
	}
	count = min(count, len(c.questions))

	var perm []int
	if rng != nil {
		perm = rng.Perm(len(c.questions))
	} else {
		perm = rand.Perm(len(c.questions))
	}

	selected := make([]Question, 0, count)
	for _, i := range perm[:count] {
		selected = append(selected, c.questions[i])
	}
	return selected
}

type CategoryScore struct {
	Category string `json:"category"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
}

// Review tells the learner how one question was answered.
type Review struct {
	QuestionID    string `json:"questionId"`
	Answer        *int   `json:"answer"`
	CorrectAnswer int    `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation"`
}

type Result struct {
	Score             int             `json:"score"`
	TotalQuestions    int             `json:"totalQuestions"`
	Percentage        int             `json:"percentage"`
	CorrectAnswers    int             `json:"correctAnswers"`
	IncorrectAnswers  int             `json:"incorrectAnswers"`
	CategoryBreakdown []CategoryScore `json:"categoryBreakdown"`
	Review            []Review        `json:"review"`
}

// Score grades answers positionally against questionIDs. A missing answer
// counts as incorrect and extra answers are ignored.
func (c *Catalog) Score(questionIDs []string, answers []int) (Result, error) {
	if len(questionIDs) == 0 {
		return Result{}, ErrNoQuestions
	}

	result := Result{
		TotalQuestions:    len(questionIDs),
		CategoryBreakdown: make([]CategoryScore, 0),
		Review:            make([]Review, 0, len(questionIDs)),
	}
	categories := map[string]int{}

	for i, id := range questionIDs {
		idx, ok := c.questionIndex[id]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
		}
		question := c.questions[idx]

		pos, seen := categories[question.Category]
		if !seen {
			pos = len(result.CategoryBreakdown)
			categories[question.Category] = pos
			result.CategoryBreakdown = append(result.CategoryBreakdown, CategoryScore{Category: question.Category})
		}
		result.CategoryBreakdown[pos].Total++

		review := Review{
			QuestionID:    id,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
		}
		if i < len(answers) {
			answer := answers[i]
			review.Answer = &answer
			review.Correct = answer == question.CorrectAnswer
		}
		if review.Correct {
			result.Score++
			result.CategoryBreakdown[pos].Correct++
		}
		result.Review = append(result.Review, review)
	}

	result.CorrectAnswers = result.Score
	result.IncorrectAnswers = result.TotalQuestions - result.Score
	result.Percentage = Percentage(result.Score, result.TotalQuestions)
	return result, nil
}

// Percentage returns round(score/total*100), or 0 when total is not positive.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
