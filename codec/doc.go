// Package codec provides the serializers used to move result chunks across a
// process group's collective operations.
//
// JSON is the default: it is debuggable on the wire and covers the common
// numeric and struct payloads. Gob covers Go types JSON cannot represent
// (NaN/Inf floats, maps with non-string keys). Every member of a group must
// use the same codec.
package codec
