/*
Package cash keeps the balances of transfer destinations.

There is no logic in the value, except that a balance may not go below zero
or overflow. Thus, this implementation is referred to as cash. Simple and
safe.

Controller implements the wallet transfer executor: it withdraws the amount
from the wallet pool and credits the destination balance.
*/
package cash
