package assembler

type hoverInfoFormatsType struct {
	labelDefinition string
	constant        string
	integerLiteral  string
	variable        string
	define          string
	macro           string
	expression      string
	array           string
}

var hoverInfoFormats = hoverInfoFormatsType{
	labelDefinition: "Definition of label `%s`.\n\nAddress 0x%X",
	constant:        "Constant `%s`\n\nEvaluates to `%d` (`0x%X`)",
	integerLiteral:  "Integer Literal `%d` (`0x%X`)",
	variable:        "Variable `%s`\n\nValue at the end of assembly `%d`",
	define:          "Define `%s`\n\nExpands to `%s`",
	macro:           "Macro `%s(%s)`",
	expression:      "Expression `%s(%s)`\n\nEvaluates `%s`",
	array:           "Array `%s` of %d elements",
}

var directiveHover = map[string]string{
	"output":       "Output Directive.\n\nFormat: `output \"<file>\"[, create]`\n\nOpens the target file relative to the current source file. Without `create` the existing file is modified in place.",
	"architecture": "Architecture Directive.\n\nFormat: `architecture <name>`\n\nLoads the instruction table `<name>.arch`. `architecture none` disables instruction encoding.",
	"endian":       "Endian Directive.\n\nFormat: `endian lsb` or `endian msb`\n\nSelects the byte order of multi-byte writes.",
	"origin":       "Origin Directive.\n\nFormat: `origin <expr>`\n\nMoves the write position within the target file.",
	"base":         "Base Directive.\n\nFormat: `base <expr>`\n\nSets the base so that `pc` equals `<expr>` at the current origin.",
	"enqueue":      "Enqueue Directive.\n\nFormat: `enqueue origin|base|pc`\n\nSaves positional state, restored with `dequeue`.",
	"dequeue":      "Dequeue Directive.\n\nFormat: `dequeue origin|base|pc`\n\nRestores positional state saved with `enqueue`.",
	"insert":       "Insert Directive.\n\nFormat: `insert [<name>, ]\"<file>\"[, <offset>[, <length>]]`\n\nCopies a binary file into the output. `<name>` is defined as a label along with `<name>.size`.",
	"fill":         "Fill Directive.\n\nFormat: `fill <length>[, <byte>]`\n\nWrites `<length>` copies of `<byte>`, which defaults to `0`.",
	"map":          "Map Directive.\n\nFormat: `map '<c>', <value>[, <length>]`\n\nRemaps characters for strings and character constants.",
	"characters":   "Characters Directive.\n\nFormat: `characters map` or `characters ascii`\n\nSelects whether character constants use the remap table.",
	"db":           "Data Byte Directive.\n\nFormat: `db <expr>|\"<text>\", ...`\n\nWrites each value as 1 byte.",
	"dw":           "Data Word Directive.\n\nFormat: `dw <expr>|\"<text>\", ...`\n\nWrites each value as 2 bytes.",
	"dl":           "Data Long Directive.\n\nFormat: `dl <expr>|\"<text>\", ...`\n\nWrites each value as 3 bytes.",
	"dd":           "Data Double Directive.\n\nFormat: `dd <expr>|\"<text>\", ...`\n\nWrites each value as 4 bytes.",
	"dq":           "Data Quad Directive.\n\nFormat: `dq <expr>|\"<text>\", ...`\n\nWrites each value as 8 bytes.",
	"print":        "Print Directive.\n\nFormat: `print \"<text>\"|hex:<expr>|bin:<expr>|<expr>, ...`\n\nPrints during the write phase.",
	"notice":       "Notice Directive.\n\nFormat: `notice \"<text>\"`",
	"warning":      "Warning Directive.\n\nFormat: `warning \"<text>\"`\n\nFails assembly in strict mode.",
	"error":        "Error Directive.\n\nFormat: `error \"<text>\"`\n\nFails assembly.",
	"tracker":      "Tracker Directive.\n\nFormat: `tracker enable` or `tracker disable`\n\nReports an error when the same address is written twice.",
	"macro":        "Macro Declaration.\n\nFormat: `macro <name>(<params>) {`\n\nThe body runs in its own scope on every invocation. `{#}` expands to a unique name per invocation.",
	"inline":       "Inline Macro Declaration.\n\nFormat: `inline <name>(<params>) {`\n\nLike `macro`, but symbols are declared in the caller's scope.",
	"define":       "Define Declaration.\n\nFormat: `define <name>[(<params>)] = <text>`\n\nReferenced as `{<name>}`.",
	"evaluate":     "Evaluate Declaration.\n\nFormat: `evaluate <name> = <expr>`\n\nA define holding the evaluated integer.",
	"expression":   "Expression Declaration.\n\nFormat: `expression <name>(<params>) = <expr>`",
	"variable":     "Variable Declaration.\n\nFormat: `variable <name>[ = <expr>]`",
	"constant":     "Constant Declaration.\n\nFormat: `constant <name> = <expr>`\n\nConstants may be referenced before they are declared.",
	"array":        "Array Declaration.\n\nFormat: `array[<size>] <name>` or `array <name> = <expr>, ...`",
	"if":           "Conditional.\n\nFormat: `if <expr> {` ... `} else if <expr> {` ... `} else {` ... `}`",
	"while":        "Loop.\n\nFormat: `while <expr> {` ... `}`",
	"scope":        "Scope.\n\nFormat: `scope <name> {` ... `}`\n\nSymbols declared inside are prefixed with `<name>.`",
	"namespace":    "Namespace.\n\nFormat: `namespace <name> {` ... `}`\n\nSymbols declared inside are prefixed with `<name>.`",
	"function":     "Function.\n\nFormat: `function <name> {` ... `}`\n\nDeclares the label `<name>` and opens a scope of the same name.",
	"include":      "Include.\n\nFormat: `include \"<file>\"`\n\nReads another source file relative to this one.",
	"global":       "Global Specifier.\n\nDeclares the following symbol in the outermost frame.",
	"parent":       "Parent Specifier.\n\nDeclares the following symbol in the frame of the caller.",
}
