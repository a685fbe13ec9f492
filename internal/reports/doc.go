// Package reports holds the content producers behind the dispatch
// table: market and lightning snapshots fetched from an upstream HTTP
// API (data plus a pre-rendered chart image), and a network snapshot
// measured locally with speedtest-go. Each producer is a replaceable
// I/O adapter; the dialog/scheduling core only sees content.Handler.
package reports
