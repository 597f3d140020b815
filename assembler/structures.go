package assembler

type Phase int

const (
	Analyze Phase = iota
	Query
	Write
)

func (p Phase) String() string {
	switch p {
	case Analyze:
		return "analyze"
	case Query:
		return "query"
	case Write:
		return "write"
	}
	return "unknown"
}

// Evaluation selects how unresolved names are treated.
type Evaluation int

const (
	Default Evaluation = iota
	Strict             // forward references to constants are errors
)

type statementKind int

const (
	statementOther statementKind = iota
	statementMacro
	statementIf
	statementElseIf
	statementElse
	statementWhile
	statementScope
	statementFunction
	statementBlock
	statementEnd
)

type blockKind int

const (
	blockNone blockKind = iota
	blockMacro
	blockIf
	blockWhile
	blockScope
	blockPlain
)

// Instruction is one ';' separated statement of a source file.
type Instruction struct {
	Statement string
	File      int
	Line      int // 1-based
	Block     int // 1-based index within the line
	Column    int // 0-based offset of the statement within the line
	Length    int

	kind statementKind
	ip   int       // jump target resolved by the analyze phase
	exit int       // closing '}' of an if chain
	end  blockKind // block closed by a '}' statement
}

type tracker struct {
	enable    bool
	addresses map[int64]struct{}
}

type directive struct {
	token  string // includes the trailing space, eg "db "
	length int
}

// Directives maps byte emission tokens to their width.
type Directives struct {
	EmitBytes []directive
}

func defaultDirectives() Directives {
	return Directives{EmitBytes: []directive{
		{"db ", 1}, {"dw ", 2}, {"dl ", 3}, {"dd ", 4}, {"dq ", 8},
	}}
}

func (d *Directives) set(token string, length int) {
	for n := range d.EmitBytes {
		if d.EmitBytes[n].token == token {
			d.EmitBytes[n].length = length
			return
		}
	}
	d.EmitBytes = append(d.EmitBytes, directive{token, length})
}

type TextPosition struct {
	Line int `json:"line"`
	Char int `json:"character"`
}

type TextRange struct {
	Start TextPosition `json:"start"`
	End   TextPosition `json:"end"`
}

type CodeDescription struct {
	URL string `json:"href"`
}

type DiagnosticSeverity int

const (
	Error       DiagnosticSeverity = 1
	Warning     DiagnosticSeverity = 2
	Information DiagnosticSeverity = 3
	Hint        DiagnosticSeverity = 4
)

type Diagnostic struct {
	Range           TextRange          `json:"range"`
	Message         string             `json:"message"`
	Source          string             `json:"source,omitempty"`
	CodeDescription *CodeDescription   `json:"codeDescription,omitempty"`
	Severity        DiagnosticSeverity `json:"severity,omitempty"`
	File            string             `json:"-"`
}
