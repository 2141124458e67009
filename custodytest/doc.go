/*
Package custodytest provides helpers for testing code built on the custody
wallet: address generation, a recording event sink and transfer executor
mocks.
*/
package custodytest
