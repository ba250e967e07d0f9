package controller

import (
	"fmt"

	"github.com/samcharles93/datkit/pkg/datio"
)

// Sentinels introducing each section of a state-machine graph.
const (
	EntryMagic     uint32 = 0x00100001
	ConditionMagic uint32 = 0x00100002
	ActionMagic    uint32 = 0x00100003
)

// StateMachine is the entry/condition/action graph of a state-machine
// controller. Only the entry count is stored on the wire; conditions and
// actions run until the next word is not their sentinel.
//
// Indices on entries, conditions and actions are derived from position: they
// are assigned on decode and recomputed on encode, so values set by callers
// are ignored.
type StateMachine struct {
	Header  [4]uint32
	Name    string
	Entries []Entry
}

type Entry struct {
	Index      uint32
	Name       string
	Conditions []Condition
}

type Condition struct {
	ParentEntry uint32
	Goto        uint32
	Type        int32
	Expression  string
	Value       string
	Actions     []Action
}

type Action struct {
	ParentEntry     uint32
	ParentCondition uint32
	Name            string
	Value           string
}

// Reindex assigns every index from its position in the graph.
func (m *StateMachine) Reindex() {
	for i := range m.Entries {
		e := &m.Entries[i]
		e.Index = uint32(i)
		for j := range e.Conditions {
			cond := &e.Conditions[j]
			cond.ParentEntry = uint32(i)
			for k := range cond.Actions {
				cond.Actions[k].ParentEntry = uint32(i)
				cond.Actions[k].ParentCondition = uint32(j)
			}
		}
	}
}

func decodeStateMachine(cur *datio.Cursor) (*StateMachine, error) {
	m := &StateMachine{}
	for i := range m.Header {
		v, err := cur.ReadU32()
		if err != nil {
			return nil, datio.WithField(err, "Graph.Header")
		}
		m.Header[i] = v
	}
	name, err := cur.ReadNullTerminatedString()
	if err != nil {
		return nil, datio.WithField(err, "Graph.Name")
	}
	m.Name = name
	count, err := cur.ReadU32()
	if err != nil {
		return nil, datio.WithField(err, "Graph.Entries")
	}
	// an entry is at least a sentinel, an index and a terminator
	if uint64(count)*9 > uint64(cur.Remaining()) {
		return nil, &datio.Error{
			Class:  datio.ErrStructural,
			Field:  "Graph.Entries",
			Offset: cur.Offset(),
			Reason: fmt.Sprintf("entry count %d exceeds %d remaining bytes", count, cur.Remaining()),
		}
	}

	m.Entries = make([]Entry, 0, int(count))
	for i := 0; i < int(count); i++ {
		e, err := decodeEntry(cur, i)
		if err != nil {
			return nil, datio.WithField(err, fmt.Sprintf("Graph.Entries[%d]", i))
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}

func decodeEntry(cur *datio.Cursor, index int) (Entry, error) {
	off := cur.Offset()
	magic, err := cur.ReadU32()
	if err != nil {
		return Entry{}, err
	}
	if magic != EntryMagic {
		return Entry{}, datio.Errorf(datio.ErrSchemaMismatch, off, "expected entry sentinel 0x%08x, found 0x%08x", EntryMagic, magic)
	}
	if _, err := cur.ReadU32(); err != nil {
		return Entry{}, err
	}
	name, err := cur.ReadNullTerminatedString()
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Index: uint32(index), Name: name}

	for j := 0; cur.NextIs(ConditionMagic); j++ {
		cond, err := decodeCondition(cur, index, j)
		if err != nil {
			return Entry{}, datio.WithField(err, fmt.Sprintf("Conditions[%d]", j))
		}
		e.Conditions = append(e.Conditions, cond)
	}
	return e, nil
}

func decodeCondition(cur *datio.Cursor, entry, index int) (Condition, error) {
	// parent entry index on the wire is positional
	if _, err := cur.ReadU32(); err != nil {
		return Condition{}, err
	}
	cond := Condition{ParentEntry: uint32(entry)}
	var err error
	if cond.Goto, err = cur.ReadU32(); err != nil {
		return Condition{}, err
	}
	if cond.Type, err = cur.ReadI32(); err != nil {
		return Condition{}, err
	}
	if cond.Expression, err = cur.ReadNullTerminatedString(); err != nil {
		return Condition{}, datio.WithField(err, "Expression")
	}
	if cond.Value, err = cur.ReadNullTerminatedString(); err != nil {
		return Condition{}, datio.WithField(err, "Value")
	}

	for k := 0; cur.NextIs(ActionMagic); k++ {
		a := Action{ParentEntry: uint32(entry), ParentCondition: uint32(index)}
		if _, err := cur.ReadU32(); err != nil {
			return Condition{}, datio.WithField(err, fmt.Sprintf("Actions[%d]", k))
		}
		if _, err := cur.ReadU32(); err != nil {
			return Condition{}, datio.WithField(err, fmt.Sprintf("Actions[%d]", k))
		}
		if a.Name, err = cur.ReadNullTerminatedString(); err != nil {
			return Condition{}, datio.WithField(err, fmt.Sprintf("Actions[%d].Name", k))
		}
		if a.Value, err = cur.ReadNullTerminatedString(); err != nil {
			return Condition{}, datio.WithField(err, fmt.Sprintf("Actions[%d].Value", k))
		}
		cond.Actions = append(cond.Actions, a)
	}
	return cond, nil
}

func encodeStateMachine(w *datio.Writer, m *StateMachine) error {
	if m == nil {
		return &datio.Error{Class: datio.ErrSchemaMismatch, Field: "Graph", Offset: -1, Reason: "state-machine record has no graph"}
	}
	if uint64(len(m.Entries)) > uint64(^uint32(0)) {
		return datio.Errorf(datio.ErrCapacity, -1, "too many entries: %d", len(m.Entries))
	}
	for _, v := range m.Header {
		w.WriteU32(v)
	}
	if err := w.WriteNullTerminatedString(m.Name); err != nil {
		return datio.WithField(err, "Graph.Name")
	}
	w.WriteU32(uint32(len(m.Entries)))
	for i := range m.Entries {
		e := &m.Entries[i]
		w.WriteU32(EntryMagic)
		w.WriteU32(uint32(i))
		if err := w.WriteNullTerminatedString(e.Name); err != nil {
			return datio.WithField(err, fmt.Sprintf("Graph.Entries[%d].Name", i))
		}
		for j := range e.Conditions {
			cond := &e.Conditions[j]
			w.WriteU32(ConditionMagic)
			w.WriteU32(uint32(i))
			w.WriteU32(cond.Goto)
			w.WriteI32(cond.Type)
			if err := w.WriteNullTerminatedString(cond.Expression); err != nil {
				return datio.WithField(err, fmt.Sprintf("Graph.Entries[%d].Conditions[%d].Expression", i, j))
			}
			if err := w.WriteNullTerminatedString(cond.Value); err != nil {
				return datio.WithField(err, fmt.Sprintf("Graph.Entries[%d].Conditions[%d].Value", i, j))
			}
			for k := range cond.Actions {
				a := &cond.Actions[k]
				w.WriteU32(ActionMagic)
				w.WriteU32(uint32(i))
				w.WriteU32(uint32(j))
				if err := w.WriteNullTerminatedString(a.Name); err != nil {
					return datio.WithField(err, fmt.Sprintf("Graph.Entries[%d].Conditions[%d].Actions[%d].Name", i, j, k))
				}
				if err := w.WriteNullTerminatedString(a.Value); err != nil {
					return datio.WithField(err, fmt.Sprintf("Graph.Entries[%d].Conditions[%d].Actions[%d].Value", i, j, k))
				}
			}
		}
	}
	return nil
}
