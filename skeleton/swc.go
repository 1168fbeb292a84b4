package skeleton

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/janelia-flyem/neuprep/neuprep"
)

const (
	swcIDKey       = "id:"
	swcTemplateKey = "template:"
)

// ReadSWC parses a standard 7-column SWC file: id type x y z radius parent.
// Header comments written by WriteSWC restore the identifier and template;
// otherwise the caller sets them.
func ReadSWC(r io.Reader) (*Skeleton, error) {
	s := new(Skeleton)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			comment := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			switch {
			case strings.HasPrefix(comment, swcIDKey):
				s.ID = neuprep.Identifier(strings.TrimSpace(strings.TrimPrefix(comment, swcIDKey)))
			case strings.HasPrefix(comment, swcTemplateKey):
				s.Template = strings.TrimSpace(strings.TrimPrefix(comment, swcTemplateKey))
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 7 {
			return nil, fmt.Errorf("SWC line %d: expected 7 columns, got %d", lineNum, len(fields))
		}
		var n Node
		var err error
		if n.ID, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
			return nil, fmt.Errorf("SWC line %d: bad node id: %v", lineNum, err)
		}
		if n.Type, err = strconv.Atoi(fields[1]); err != nil {
			return nil, fmt.Errorf("SWC line %d: bad node type: %v", lineNum, err)
		}
		for i := 0; i < 3; i++ {
			if n.Pos[i], err = strconv.ParseFloat(fields[2+i], 64); err != nil {
				return nil, fmt.Errorf("SWC line %d: bad coordinate: %v", lineNum, err)
			}
		}
		if n.Radius, err = strconv.ParseFloat(fields[5], 64); err != nil {
			return nil, fmt.Errorf("SWC line %d: bad radius: %v", lineNum, err)
		}
		if n.Parent, err = strconv.ParseInt(fields[6], 10, 64); err != nil {
			return nil, fmt.Errorf("SWC line %d: bad parent: %v", lineNum, err)
		}
		if n.Parent < 0 {
			n.Parent = NoParent
		}
		s.Nodes = append(s.Nodes, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteSWC writes the skeleton in SWC format with identifier and template header comments.
func WriteSWC(w io.Writer, s *Skeleton) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s %s\n", swcIDKey, s.ID)
	if s.Template != "" {
		fmt.Fprintf(bw, "# %s %s\n", swcTemplateKey, s.Template)
	}
	for _, n := range s.Nodes {
		fmt.Fprintf(bw, "%d %d %s %s %s %s %d\n", n.ID, n.Type,
			formatFloat(n.Pos[0]), formatFloat(n.Pos[1]), formatFloat(n.Pos[2]),
			formatFloat(n.Radius), n.Parent)
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
