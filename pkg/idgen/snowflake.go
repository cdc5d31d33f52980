// Package idgen 基于雪花算法生成短唯一后缀
package idgen

import (
	"fmt"
	"sync"
	"time"

	sf "github.com/bwmarrin/snowflake"
)

// SnowflakeNode 封装雪花算法节点
type SnowflakeNode struct {
	node *sf.Node
}

var (
	snowflake *SnowflakeNode
	mu        sync.Mutex
)

// Init 初始化雪花算法节点
// startTime: 起始时间，格式："2006-01-02"
// machineID: 机器ID (0-1023)
func Init(startTime string, machineID int64) error {
	st, err := time.Parse("2006-01-02", startTime)
	if err != nil {
		return fmt.Errorf("解析雪花起始时间失败: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	sf.Epoch = st.UnixNano() / 1000000
	node, err := sf.NewNode(machineID)
	if err != nil {
		return fmt.Errorf("创建雪花节点失败: %v", err)
	}
	snowflake = &SnowflakeNode{node: node}
	return nil
}

func current() *SnowflakeNode {
	mu.Lock()
	defer mu.Unlock()
	if snowflake == nil {
		// 未显式初始化时使用默认纪元和0号节点
		node, _ := sf.NewNode(0)
		snowflake = &SnowflakeNode{node: node}
	}
	return snowflake
}

// GenerateID 生成唯一ID
func GenerateID() int64 {
	return current().node.Generate().Int64()
}

// Suffix 生成base36编码的唯一后缀，用于slug冲突时追加
func Suffix() string {
	return current().node.Generate().Base36()
}
