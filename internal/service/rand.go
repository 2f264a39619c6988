package service

import (
	"math/rand/v2"
	"time"
)

// Rand 随机源，测试中注入确定性实现
type Rand interface {
	// Float64 返回 [0,1)
	Float64() float64
	// IntN 返回 [0,n)
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRand 进程级随机源
func DefaultRand() Rand { return globalRand{} }

func utcNow() time.Time { return time.Now().UTC() }
