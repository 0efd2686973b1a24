package judge0

// Judge0 status ids. Anything above StatusProcessing is terminal.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeSIGSEGV    = 7
	StatusRuntimeOther      = 12
	StatusInternalError     = 13
	StatusExecFormatError   = 14
)

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

func (s Status) Terminal() bool { return s.ID > StatusProcessing }

func (s Status) IsCompilationError() bool { return s.ID == StatusCompilationError }

func (s Status) IsRuntimeError() bool {
	return s.ID >= StatusRuntimeSIGSEGV && s.ID <= StatusRuntimeOther
}

// Request is one (language, source, stdin) execution.
type Request struct {
	LanguageID int
	SourceCode string
	Stdin      string
}

type submissionBody struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

// Result mirrors GET /submissions/{token}.
type Result struct {
	Token         string  `json:"token"`
	Status        Status  `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *Result) StdoutString() string        { return deref(r.Stdout) }
func (r *Result) StderrString() string        { return deref(r.Stderr) }
func (r *Result) CompileOutputString() string { return deref(r.CompileOutput) }
func (r *Result) TimeString() string          { return deref(r.Time) }

func (r *Result) MemoryKB() int {
	if r.Memory == nil {
		return 0
	}
	return *r.Memory
}

type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
