// Package reconcile applies parsed reply results to the cards of the window
// they were produced for. Application is all-or-nothing: when the number of
// results differs from the number of cards, no card is touched.
package reconcile
