// Package splitfile implements the declarative build language of
// spec.md §4.5: parse a script into a typed command list, preprocess
// parameter substitution, and execute each command against the
// repository/image API with content-addressed layer caching.
package splitfile

// Command is the sum type a parsed Splitfile reduces to: one of
// Comment, Output, Import, or Sql.
type Command interface {
	isCommand()
}

// Comment is a '#'-prefixed line, kept only for round-tripping
// provenance text; it has no execution effect.
type Comment struct {
	Text string
}

// Output is the 'OUTPUT <repo> [<image_hash>]' command: selects the
// repository every subsequent command builds into, optionally checking
// out a specific starting image.
type Output struct {
	Repo      string
	ImageHash string // empty if not given
}

// ImportTable is one '<ident> [AS <ident>]' entry of an IMPORT command.
type ImportTable struct {
	Name  string
	Alias string // equal to Name if no AS clause was given
}

// Import is the 'FROM [<conn_string>] <repo>[:<tag>] IMPORT <table>(,
// <table>)*' command.
type Import struct {
	ConnString string // empty if not given
	Repo       string
	Tag        string // empty means the repo's default ref
	Tables     []ImportTable
}

// Sql is the 'SQL <statement-until-newline>' command.
type Sql struct {
	Statement string
}

func (Comment) isCommand() {}
func (Output) isCommand()  {}
func (Import) isCommand()  {}
func (Sql) isCommand()     {}
