// Package report renders crawl results.
//
// Writers for the supported formats:
//   - SimpleWriter: fixed-width text for the terminal
//   - JSONWriter and FullJSONWriter: structured JSON for tool integration
//   - MarkdownWriter: tables and a mermaid energy class chart
//   - CSVWriter: one row per listing for spreadsheets
//
// Every writer implements Writer, so they can be used interchangeably and
// composed with MultiWriter.
package report
