// Package util defines the generic container contracts spec.md §1/§2
// name but deliberately leave out of scope: a dynamic array and a
// hashtable. No concrete implementation ships here — every internal
// use of "a dynamic array" or "a hashtable" elsewhere in this module
// is satisfied directly by a Go slice or map, the idiomatic
// replacement for the original's hand-rolled SList/robin-hood htbl
// when no storage-density or iteration-order guarantee from those
// types is actually load-bearing.
//
// Grounded on original_source/src/include/io/utils/SList.h and
// htbl.h's public contract shape (push/pop/len, get/set/delete/len) —
// their .c bodies are intentionally not ported.
package util

// DynArray is the contract a growable, indexable sequence would
// satisfy (vh_SList's public shape), kept here as documentation of the
// concern rather than as a type anything in this module implements.
type DynArray[T any] interface {
	Len() int
	At(i int) T
	Push(v T)
	Pop() (T, bool)
}

// HashMap is the contract a generic key/value store would satisfy
// (vh_htbl's public shape), kept here for the same reason.
type HashMap[K comparable, V any] interface {
	Get(k K) (V, bool)
	Set(k K, v V)
	Delete(k K)
	Len() int
}
