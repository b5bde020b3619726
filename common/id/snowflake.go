package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	initErr error
	once    sync.Once
)

// Init sets up the process-wide snowflake node. Server and worker use
// different node ids so records created by either never collide.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	if initErr != nil {
		return fmt.Errorf("snowflake node %d: %w", nodeID, initErr)
	}
	return nil
}

// New returns a time-ordered unique id. Init must have succeeded first.
func New() int64 {
	if node == nil {
		panic("id: New called before Init")
	}
	return node.Generate().Int64()
}
