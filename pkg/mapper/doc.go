// Package mapper converts the storage format written by the search engine
// into display trees.
package mapper
