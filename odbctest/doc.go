/*
Package odbctest provides an in-memory odbc.DriverManager for tests.

It serves canned rowsets per query text, echoes bound parameters back as a
row, records every native call and can inject failures or nil handles at
any operation. Release counters let tests check that each native handle is
released exactly once.
*/
package odbctest
