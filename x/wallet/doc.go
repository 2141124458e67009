/*
Package wallet implements a custody wallet controlled by a group of owners.

A fixed set of owners, stored in a Registry together with the number of
required confirmations, jointly controls a pool of value. Any owner can submit
a transfer. The transfer can be executed only after enough distinct owners
confirmed it. An owner can revoke its confirmation for as long as the
transaction was not executed.

Value is moved by a TransferExecutor. The executed flag is set before the
executor is called and the whole execution is rolled back if the executor
fails, so a transaction is executed at most once.
*/
package wallet
