// Package filestore implements the card store ports on a YAML deck file, so
// the tagger can run against an exported collection without a database.
//
// The file holds a list of decks, each with its cards:
//
//	decks:
//	  - name: Go
//	    cards:
//	      - id: 3f0c...
//	        question: What is a goroutine?
//	        answer: A lightweight thread managed by the Go runtime
//	        tags: [Golang]
//
// Cards without an id get one on load; it is persisted on the next write.
package filestore
