package asm

import (
	"fmt"

	"ember/internal/evm"
)

// PatchSite records where a deploy-time placeholder's immediate data lives
// in the assembled code.
type PatchSite struct {
	Role   PatchRole
	Offset int
}

// Program is the assembled form of an Assembly: concrete bytecode with all
// tags resolved to offsets. Sub-assembly images follow the main code, so a
// creation program's Code is the byte string handed to the chain as-is.
type Program struct {
	Name string
	Code []byte
	// MainSize is the length of the main code; sub images start here.
	MainSize int
	// SubOffsets holds the offset of each sub image within Code.
	SubOffsets []int
	// Subs are the assembled sub-programs, index-aligned with SubOffsets.
	Subs []*Program
	// PatchSites are the placeholder data offsets within the main code.
	PatchSites []PatchSite
}

// Tag offsets are pushed as fixed-width PUSH2 immediates so that item sizes
// are known before offsets are resolved; this caps a single code unit at
// 64 KiB, far beyond deployable contract sizes.
const tagPushSize = 3

func itemSize(it Item) int {
	switch it.Kind {
	case KindOp:
		return 1
	case KindPush:
		n := len(it.Data.Bytes())
		if n == 0 {
			n = 1
		}
		return 1 + n
	case KindPushTag, KindPushSubSize, KindPushSubOffset, KindPushProgramSize:
		return tagPushSize
	case KindTag:
		return 1
	case KindPlaceholder:
		return 1 + 20
	}
	panic(fmt.Sprintf("asm: unknown item kind %d", it.Kind))
}

// Assemble resolves tags and sub-assembly references and produces the final
// program. Referencing an undefined tag is an error.
func (a *Assembly) Assemble() (*Program, error) {
	subs := make([]*Program, len(a.subs))
	for i, sub := range a.subs {
		p, err := sub.Assemble()
		if err != nil {
			return nil, err
		}
		subs[i] = p
	}

	// First pass: item offsets and tag targets.
	mainSize := 0
	tagOffsets := map[int]int{}
	for _, it := range a.items {
		if it.Kind == KindTag {
			tagOffsets[it.Tag.id] = mainSize
		}
		mainSize += itemSize(it)
	}

	subOffsets := make([]int, len(subs))
	off := mainSize
	for i, sub := range subs {
		subOffsets[i] = off
		off += len(sub.Code)
	}

	p := &Program{
		Name:       a.name,
		MainSize:   mainSize,
		SubOffsets: subOffsets,
		Subs:       subs,
	}

	// Second pass: emit bytes.
	code := make([]byte, 0, off)
	for _, it := range a.items {
		switch it.Kind {
		case KindOp:
			code = append(code, byte(it.Op))
		case KindPush:
			data := it.Data.Bytes()
			if len(data) == 0 {
				data = []byte{0}
			}
			code = append(code, byte(evm.PushN(len(data))))
			code = append(code, data...)
		case KindPushTag:
			target, ok := tagOffsets[it.Tag.id]
			if !ok {
				return nil, fmt.Errorf("asm: undefined tag %d referenced in %s", it.Tag.id, a.name)
			}
			code = appendOffsetPush(code, target, a.name)
		case KindPushSubSize:
			code = appendOffsetPush(code, len(subs[it.Sub].Code), a.name)
		case KindPushSubOffset:
			code = appendOffsetPush(code, subOffsets[it.Sub], a.name)
		case KindPushProgramSize:
			code = appendOffsetPush(code, off, a.name)
		case KindTag:
			code = append(code, byte(evm.JUMPDEST))
		case KindPlaceholder:
			p.PatchSites = append(p.PatchSites, PatchSite{Role: it.Role, Offset: len(code) + 1})
			code = append(code, byte(evm.PushN(20)))
			code = append(code, make([]byte, 20)...)
		}
	}
	for _, sub := range subs {
		code = append(code, sub.Code...)
	}
	p.Code = code
	return p, nil
}

func appendOffsetPush(code []byte, v int, name string) []byte {
	if v >= 1<<16 {
		panic(fmt.Sprintf("asm: offset %d exceeds tag push width in %s", v, name))
	}
	return append(code, byte(evm.PushN(2)), byte(v>>8), byte(v))
}
