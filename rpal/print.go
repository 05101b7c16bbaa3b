package rpal

import (
	"fmt"
	"io"
	"strings"
)

// WriteTree renders a tree pre-order, depth-first, one node per line,
// each line prefixed with as many '.' characters as the node's depth.
// This is the format the -ast and -st modes print.
func WriteTree(w io.Writer, root *Node) error {
	return writeTree(w, root, 0)
}

func writeTree(w io.Writer, n *Node, depth int) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat(".", depth), n.Label()); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := writeTree(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
