// Package ids generates short public identifiers.
package ids

import (
	"fmt"
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Generator hands out time-ordered Base58 ids, safe for concurrent use.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator uses node as the snowflake worker id (0-1023).
func NewGenerator(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("creating snowflake node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

// NodeFromHostname derives a worker id from the host name so replicas differ.
func NodeFromHostname() int64 {
	host, err := os.Hostname()
	if err != nil {
		return 1
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return int64(h.Sum32() % 1024)
}

// Next returns a new public id such as "3cMdGhQbvfG".
func (g *Generator) Next() string {
	return g.node.Generate().Base58()
}
