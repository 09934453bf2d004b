// Package fetch acquires one story packet and its audio clips per cycle in
// a background worker, handing the result to the render loop through a
// single-slot mailbox.
package fetch
