package types

import (
	"errors"
	"fmt"
	"strings"
)

// Mode 调用方选择的延迟/质量档位
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeBalanced Mode = "balanced"
	ModeThorough Mode = "thorough"
)

// AllModes 全部档位，顺序固定
var AllModes = []Mode{ModeFast, ModeBalanced, ModeThorough}

// ErrUnknownMode 未知档位
var ErrUnknownMode = errors.New("unknown search mode")

// ParseMode 解析档位字符串，未知值返回 ErrUnknownMode
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeFast, ModeBalanced, ModeThorough:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) String() string { return string(m) }

// PathName 检索路径名称
type PathName string

const (
	PathVector  PathName = "vector"
	PathEntity  PathName = "entity"
	PathCluster PathName = "cluster"
	PathActor   PathName = "actor"
)

// AllPaths 全部检索路径，规范顺序
var AllPaths = []PathName{PathVector, PathEntity, PathCluster, PathActor}

// Rank returns the position of p in AllPaths, or len(AllPaths) when unknown.
func (p PathName) Rank() int {
	for i, known := range AllPaths {
		if known == p {
			return i
		}
	}
	return len(AllPaths)
}

// NeedsEmbedding reports whether the path waits on the query vector.
func (p PathName) NeedsEmbedding() bool {
	return p == PathVector || p == PathCluster
}
