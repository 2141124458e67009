/*
Package utils contains decorators that wrap store operations.

Savepoint isolates the changes of an operation, Recovery turns a panic into an
error and Logging reports the result and duration of an operation. Use Chain
to combine them.
*/
package utils
