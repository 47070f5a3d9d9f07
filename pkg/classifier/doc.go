// Package classifier implements the input classifier: it maps raw user text
// and the session record to exactly one classification tag.
//
// Classification is pure. Counters are updated by the engine afterwards.
package classifier
