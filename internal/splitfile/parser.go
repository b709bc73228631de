package splitfile

import (
	"fmt"
	"strings"

	"github.com/cxz/splitgraph/internal/apperrors"
)

// Parse splits an already-preprocessed Splitfile script into its
// command list, per the grammar in spec.md §4.5:
//
//	command   := comment | output | import | sql
//	comment   := '#' <any-until-newline>
//	output    := 'OUTPUT' <repo> [<image_hash>]
//	import    := 'FROM' [<conn_string>] <repo>[':'<tag>] 'IMPORT' <table>(',' <table>)*
//	table     := <ident> ['AS' <ident>]
//	sql       := 'SQL' <statement-until-newline>
func Parse(script string) ([]Command, error) {
	var out []Command
	for lineNo, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		cmd, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		out = append(out, cmd)
	}
	return out, nil
}

func parseLine(line string) (Command, error) {
	if strings.HasPrefix(line, "#") {
		return Comment{Text: strings.TrimSpace(line[1:])}, nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty command", apperrors.ErrParse)
	}

	switch fields[0] {
	case "OUTPUT":
		return parseOutput(fields)
	case "FROM":
		return parseImport(fields)
	case "SQL":
		rest := strings.TrimSpace(strings.TrimPrefix(line, "SQL"))
		if rest == "" {
			return nil, fmt.Errorf("%w: SQL command has no statement", apperrors.ErrParse)
		}
		return Sql{Statement: rest}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized command %q", apperrors.ErrParse, fields[0])
	}
}

func parseOutput(fields []string) (Command, error) {
	if len(fields) < 2 || len(fields) > 3 {
		return nil, fmt.Errorf("%w: OUTPUT expects <repo> [<image_hash>]", apperrors.ErrParse)
	}
	out := Output{Repo: fields[1]}
	if len(fields) == 3 {
		out.ImageHash = fields[2]
	}
	return out, nil
}

func parseImport(fields []string) (Command, error) {
	importIdx := -1
	for i, f := range fields {
		if f == "IMPORT" {
			importIdx = i
			break
		}
	}
	if importIdx < 0 {
		return nil, fmt.Errorf("%w: FROM without IMPORT", apperrors.ErrParse)
	}
	middle := fields[1:importIdx]
	if len(middle) == 0 {
		return nil, fmt.Errorf("%w: FROM missing source repository", apperrors.ErrParse)
	}

	imp := Import{}
	var repoTag string
	switch len(middle) {
	case 1:
		repoTag = middle[0]
	case 2:
		imp.ConnString = middle[0]
		repoTag = middle[1]
	default:
		return nil, fmt.Errorf("%w: unexpected tokens between FROM and IMPORT", apperrors.ErrParse)
	}
	if i := strings.LastIndex(repoTag, ":"); i >= 0 {
		imp.Repo, imp.Tag = repoTag[:i], repoTag[i+1:]
	} else {
		imp.Repo = repoTag
	}

	tableSpecs := strings.Join(fields[importIdx+1:], " ")
	if strings.TrimSpace(tableSpecs) == "" {
		return nil, fmt.Errorf("%w: IMPORT expects at least one table", apperrors.ErrParse)
	}
	for _, part := range strings.Split(tableSpecs, ",") {
		toks := strings.Fields(part)
		switch len(toks) {
		case 1:
			imp.Tables = append(imp.Tables, ImportTable{Name: toks[0], Alias: toks[0]})
		case 3:
			if toks[1] != "AS" {
				return nil, fmt.Errorf("%w: expected AS in table clause %q", apperrors.ErrParse, part)
			}
			imp.Tables = append(imp.Tables, ImportTable{Name: toks[0], Alias: toks[2]})
		default:
			return nil, fmt.Errorf("%w: malformed table clause %q", apperrors.ErrParse, part)
		}
	}
	return imp, nil
}
