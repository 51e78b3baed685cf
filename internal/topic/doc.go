/*
Package topic provides a structured representation for the message-bus
topics under which generated device configurations are published.

A topic is a slash-separated sequence of segments, e.g.
`devices/campus/building/AHU-1/VAV-101`. Child devices are always addressed as
`parent/child`; this package centralizes the composition and parsing rules so
the engine never builds topic strings by hand.
*/
package topic
