/*
Package report renders attendance sessions for people: aligned text tables for
the terminal and .xlsx spreadsheets for export.

Rows are sorted by clock-in, newest first. Open sessions show N/A for clock-out
and total time. Worked-time totals are never computed here; a report only shows
the total the attendance service sent with the range query.
*/
package report
