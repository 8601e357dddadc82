// Package jsondoc provides a mutable, order-preserving JSON document model and
// slash-delimited pointer resolution over it.
package jsondoc
