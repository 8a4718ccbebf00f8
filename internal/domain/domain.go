package domain

import "time"

// Difficulty of a generated quiz.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
	DifficultyExtreme   Difficulty = "extreme"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult, DifficultyExtreme:
		return true
	}
	return false
}

// Options holds the four labeled answer options of a question.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Get returns the option text for a label, or "" for an unknown label.
func (o Options) Get(label string) string {
	switch label {
	case "A":
		return o.A
	case "B":
		return o.B
	case "C":
		return o.C
	case "D":
		return o.D
	}
	return ""
}

// Question is a single multiple-choice question. Question IDs are 1-based and
// contiguous within a quiz. Immutable after quiz creation.
type Question struct {
	QuestionID    int     `json:"questionId"`
	QuestionText  string  `json:"questionText"`
	Options       Options `json:"options"`
	CorrectAnswer string  `json:"correctAnswer"`
	Explanation   string  `json:"explanation"`
}

// Quiz is an immutable set of questions once created.
// Invariant: len(Questions) == TotalQuestions.
type Quiz struct {
	QuizID         string
	QuizTitle      string
	Topic          string
	Difficulty     Difficulty
	TotalQuestions int
	TimerInMinutes int
	Description    string
	GeneratedBy    string
	Questions      []Question
	CreatedAt      time.Time
}

// Summary returns the quiz metadata without its questions.
func (q Quiz) Summary() Quiz {
	s := q
	s.Questions = nil
	return s
}

// DurationInSeconds is the total time allowed for the quiz.
func (q Quiz) DurationInSeconds() int {
	return q.TimerInMinutes * 60
}

// UserAnswer is one submitted answer. A nil SelectedAnswer means the question
// was left unattempted. IsCorrect is derived during scoring.
type UserAnswer struct {
	QuestionID     int     `json:"questionId"`
	SelectedAnswer *string `json:"selectedAnswer"`
	IsCorrect      bool    `json:"isCorrect"`
	TimeTaken      int     `json:"timeTaken,omitempty"`
}

// Score is the aggregate result of one attempt.
// Invariant: Correct + Wrong + Unattempted == Total, except that answer
// entries naming an unknown question still land in the Wrong bucket.
type Score struct {
	Total       int     `json:"total"`
	Correct     int     `json:"correct"`
	Wrong       int     `json:"wrong"`
	Unattempted int     `json:"unattempted"`
	Percentage  float64 `json:"percentage"`
}

// QuizSnapshot is the quiz metadata captured at submission time, so later
// quiz edits or deletes do not corrupt historical attempts.
type QuizSnapshot struct {
	QuizTitle      string     `json:"quizTitle"`
	Topic          string     `json:"topic"`
	Difficulty     Difficulty `json:"difficulty"`
	TotalQuestions int        `json:"totalQuestions"`
	TimerInMinutes int        `json:"timerInMinutes"`
}

// QuizAttempt is one user's scored submission against one quiz. Created and
// scored atomically at submission time, never mutated afterward.
type QuizAttempt struct {
	AttemptID     string
	QuizID        string
	Snapshot      QuizSnapshot
	UserAnswers   []UserAnswer
	Score         Score
	TimeTaken     int
	TimeRemaining int
	SubmittedAt   time.Time
	AutoSubmitted bool
}

// UserStats are aggregate counters kept on the user record.
type UserStats struct {
	QuizzesTaken   int     `json:"totalQuizzesTaken"`
	QuizzesCreated int     `json:"totalQuizzesCreated"`
	AverageScore   float64 `json:"averageScore"`
	HighestScore   float64 `json:"highestScore"`
	RoomsJoined    int     `json:"totalRoomsJoined"`
	RoomsCreated   int     `json:"totalRoomsCreated"`
}

// User is an authentication identity plus aggregate stats.
type User struct {
	UserID      string
	Username    string
	Email       string
	DisplayName string
	Avatar      string
	Bio         string
	Stats       UserStats
	IsActive    bool
	LastLogin   time.Time
	CreatedAt   time.Time
}

// PublicProfile strips fields not meant for other users.
func (u User) PublicProfile() User {
	u.Email = ""
	u.LastLogin = time.Time{}
	return u
}

// RoomStatus follows the room state machine:
// waiting -> active -> completed, with closed absorbing from waiting or active.
type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomActive    RoomStatus = "active"
	RoomCompleted RoomStatus = "completed"
	RoomClosed    RoomStatus = "closed"
)

// MemberRole distinguishes the single host from ordinary members.
type MemberRole string

const (
	RoleHost   MemberRole = "host"
	RoleMember MemberRole = "member"
)

// RoomSettings governs membership and visibility of a room.
type RoomSettings struct {
	MaxMembers                int  `json:"maxMembers"`
	IsPrivate                 bool `json:"isPrivate"`
	AllowMemberInvite         bool `json:"allowMemberInvite"`
	ShowLeaderboardDuringQuiz bool `json:"showLeaderboardDuringQuiz"`
}

// DefaultRoomSettings mirrors the defaults applied on room creation.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		MaxMembers:        50,
		AllowMemberInvite: true,
	}
}

// Member is one (user, role, joinedAt) entry of a room's member set.
type Member struct {
	UserID   string     `json:"user"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
}

// Participant is a member's per-session scoring record, created when the quiz
// starts. Rank stays 0 until the participant completes.
type Participant struct {
	UserID      string     `json:"user"`
	AttemptID   string     `json:"attempt,omitempty"`
	Score       float64    `json:"score"`
	Rank        int        `json:"rank"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Session holds the quiz run of a room.
type Session struct {
	StartedAt    *time.Time    `json:"startedAt"`
	CompletedAt  *time.Time    `json:"completedAt"`
	Participants []Participant `json:"participants"`
}

// Room is a multiplayer session wrapping one quiz. The room exclusively owns
// its member list and session participants.
type Room struct {
	RoomID      string
	RoomCode    string
	Name        string
	Description string
	HostID      string
	QuizID      string
	Members     []Member
	Settings    RoomSettings
	Status      RoomStatus
	Session     Session
	CreatedAt   time.Time
}

// MemberCount is the current size of the member set.
func (r Room) MemberCount() int { return len(r.Members) }

// IsFull reports whether the member set reached the configured capacity.
func (r Room) IsFull() bool { return len(r.Members) >= r.Settings.MaxMembers }

// LeaderboardEntry is the projection of a completed participant.
type LeaderboardEntry struct {
	UserID      string    `json:"user"`
	Score       float64   `json:"score"`
	Rank        int       `json:"rank"`
	CompletedAt time.Time `json:"completedAt"`
}

// RoomLeaderboard is the ranked view of a room's completed participants,
// sorted by rank ascending.
type RoomLeaderboard struct {
	RoomID   string
	RoomCode string
	Entries  []LeaderboardEntry
	// MemberIDs lists everyone who should be notified of changes.
	MemberIDs []string
}
